package language

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Code
	}{
		{"french", "Comment réserver le cottage pour une semaine avec les enfants", French},
		{"german", "Wie buche ich das Ferienhaus mit der Familie und den Kindern", German},
		{"dutch", "Hoe boek je het huisje met de kinderen en een hond", Dutch},
		{"english", "This is the best park and you will love it", English},
		{"no markers defaults to english", "Amazing pool slides", English},
		{"empty defaults to english", "   ", English},
		{"non latin is other", "素晴らしい公園です", Other},
		{"tie prefers french over german", "la die", French},
		{"tie prefers german over dutch", "die het", German},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.text); got != tt.want {
				t.Errorf("Detect(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Code
	}{
		{"fr", French},
		{"FRE", French},
		{"deu", German},
		{"dutch", Dutch},
		{" en ", English},
		{"es", Other},
		{"", Other},
	}
	for _, tt := range tests {
		if got := Parse(tt.input); got != tt.want {
			t.Errorf("Parse(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"nl", "Dutch"},
		{"ger", "German"},
		{"", "Unknown"},
		{"xx", "XX"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSupportedOrder(t *testing.T) {
	got := Supported()
	want := []Code{French, German, Dutch, English}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Supported() = %v, want %v", got, want)
		}
	}
}
