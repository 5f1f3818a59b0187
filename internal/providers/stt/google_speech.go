package stt

import (
	"context"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/Kazorio/translation-app/internal/audio"
)

// phraseHints biases recognition towards short conversational utterances.
var phraseHints = []string{
	"hello", "yes", "no", "thank you", "please", "okay",
	"hallo", "ja", "nein", "danke", "bitte",
	"bonjour", "oui", "non", "merci",
	"salam", "baleh", "na", "mamnoon",
}

type GoogleSpeech struct {
	c *speech.Client

	Encoding     speechpb.RecognitionConfig_AudioEncoding
	SampleRateHz int32
	Model        string
}

func NewGoogleSpeech(ctx context.Context) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{
		c:            c,
		Encoding:     speechpb.RecognitionConfig_LINEAR16,
		SampleRateHz: 16000,
		Model:        "latest_short",
	}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

// language is a locale tag, e.g. "de-DE", "fa-IR". The sample rate is taken
// from the WAV header when the payload carries one.
func (g *GoogleSpeech) Transcribe(ctx context.Context, data []byte, language string) (string, float64, error) {
	if language == "" {
		language = "en-US"
	}

	rate := g.SampleRateHz
	if info, err := audio.ReadWAVInfo(data); err == nil && info.SampleRate > 0 {
		rate = int32(info.SampleRate)
	}

	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   g.Encoding,
			SampleRateHertz:            rate,
			AudioChannelCount:          1,
			LanguageCode:               language,
			Model:                      g.Model,
			EnableAutomaticPunctuation: true,
			SpeechContexts: []*speechpb.SpeechContext{
				{Phrases: phraseHints},
			},
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: data},
		},
	})
	if err != nil {
		return "", 0, err
	}

	// short utterances can come back split across results; join the best
	// alternative of each.
	var parts []string
	var confSum float64
	for _, r := range resp.Results {
		var best *speechpb.SpeechRecognitionAlternative
		for _, alt := range r.Alternatives {
			if alt.Transcript == "" {
				continue
			}
			if best == nil || alt.Confidence > best.Confidence {
				best = alt
			}
		}
		if best != nil {
			parts = append(parts, strings.TrimSpace(best.Transcript))
			confSum += float64(best.Confidence)
		}
	}
	if len(parts) == 0 {
		return "", 0, nil
	}

	return strings.Join(parts, " "), confSum / float64(len(parts)), nil
}
