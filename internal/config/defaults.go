package config

// Deployment environments.
const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
)

// Classifier variants.
const (
	VariantAuto      = "auto"
	VariantDense     = "dense"
	VariantQuantized = "quantized"
	VariantTFIDF     = "tfidf"
)

const (
	defaultDataDir          = "./instance"
	defaultPrimaryDB        = "./instance/database.db"
	defaultEmotionsDB       = "./instance/youtube_emotions_massive.db"
	defaultEmotionsFastDB   = "./instance/youtube_emotions_fast.db"
	defaultSettingsFile     = "./config/settings.json"
	defaultStaticDir        = "./static"
	defaultLogDir           = "./instance/logs"
	defaultYouTubeBaseURL   = "https://www.googleapis.com/youtube/v3"
	defaultDailyQuota       = 10000
	defaultRequestTimeout   = 15
	defaultMaxRetries       = 3
	defaultCommentsPerVideo = 20
	defaultMassiveComments  = 1000
	defaultScraperWorkers   = 4
	defaultVideoDelayMillis = 100
	defaultAnalyzerBatch    = 1000
	defaultAnalyzerWorkers  = 4
	defaultCommitEvery      = 10
	defaultInferenceURL     = "https://api-inference.huggingface.co/models"
	defaultSentimentModel   = "cardiffnlp/twitter-xlm-roberta-base-sentiment"
	defaultEmbeddingModel   = "text-embedding-3-small"
	defaultTestSize         = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:        defaultDataDir,
			PrimaryDB:      defaultPrimaryDB,
			EmotionsDB:     defaultEmotionsDB,
			EmotionsFastDB: defaultEmotionsFastDB,
			SettingsFile:   defaultSettingsFile,
			StaticDir:      defaultStaticDir,
			LogDir:         defaultLogDir,
		},
		Environment: Environment{
			Name:     EnvironmentDevelopment,
			EnableML: true,
		},
		YouTube: YouTube{
			BaseURL:        defaultYouTubeBaseURL,
			DailyQuota:     defaultDailyQuota,
			RequestTimeout: defaultRequestTimeout,
			MaxRetries:     defaultMaxRetries,
		},
		Scraper: Scraper{
			CommentsPerVideo: defaultCommentsPerVideo,
			MassiveComments:  defaultMassiveComments,
			Workers:          defaultScraperWorkers,
			VideoDelayMillis: defaultVideoDelayMillis,
		},
		Analyzer: Analyzer{
			BatchSize:    defaultAnalyzerBatch,
			Workers:      defaultAnalyzerWorkers,
			CommitEvery:  defaultCommitEvery,
			InferenceURL: defaultInferenceURL,
			Model:        defaultSentimentModel,
		},
		Classifier: Classifier{
			Variant:        VariantAuto,
			EmbeddingModel: defaultEmbeddingModel,
			TestSize:       defaultTestSize,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
