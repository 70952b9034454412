package assistant_test

import (
	"testing"

	"golang.org/x/text/language"

	"github.com/suraksha-edu/suraksha/internal/assistant"
)

func TestDetectScript(t *testing.T) {
	tests := []struct {
		text string
		want language.Tag
	}{
		{"What should I do in an earthquake?", language.English},
		{"भूकंप में क्या करें?", language.Hindi},
		{"ਭੂਚਾਲ ਵਿੱਚ ਕੀ ਕਰੀਏ?", language.Punjabi},
		{"நிலநடுக்கத்தின் போது என்ன செய்ய வேண்டும்?", language.Tamil},
		{"ഭൂകമ്പ സമയത്ത് എന്ത് ചെയ്യണം?", language.Malayalam},
		{"112 help! भूकंप", language.Hindi},
		{"", language.English},
	}
	for _, tt := range tests {
		if got := assistant.DetectScript(tt.text); got != tt.want {
			t.Errorf("DetectScript(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		requested string
		want      language.Tag
	}{
		{"script wins over request", "बाढ़", "ta", language.Hindi},
		{"plain tag", "flood", "ml", language.Malayalam},
		{"accept-language header", "flood", "fr-FR,pa;q=0.8", language.Punjabi},
		{"regional variant", "flood", "hi-IN", language.Hindi},
		{"unsupported", "flood", "ja", language.English},
		{"garbage", "flood", "!!", language.English},
		{"empty", "flood", "", language.English},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := assistant.Resolve(tt.text, tt.requested)
			if base, _ := got.Base(); base != mustBase(tt.want) {
				t.Errorf("Resolve(%q, %q) = %v, want %v", tt.text, tt.requested, got, tt.want)
			}
		})
	}
}

func mustBase(tag language.Tag) language.Base {
	b, _ := tag.Base()
	return b
}

func TestEnglishName(t *testing.T) {
	if got := assistant.EnglishName(language.Punjabi); got != "Punjabi" {
		t.Errorf("EnglishName(pa) = %q, want Punjabi", got)
	}
	if got := assistant.EnglishName(language.Malayalam); got != "Malayalam" {
		t.Errorf("EnglishName(ml) = %q, want Malayalam", got)
	}
}
