package tts

import (
	"context"
	"strings"
	"unicode"
)

// Request describes one narration clip. PreviousText and NextText are the
// neighbouring scene scripts, used by providers that condition prosody on
// surrounding text.
type Request struct {
	Text         string
	VoiceID      string
	Model        string
	Speed        float64
	PreviousText string
	NextText     string
}

// Word is one aligned word in seconds from clip start.
type Word struct {
	Text  string
	Start float64
	End   float64
}

// Timing is word-level alignment for a clip.
type Timing struct {
	Words         []Word
	TotalDuration float64
}

// Result is synthesized audio. Timing is nil when the provider has no
// alignment.
type Result struct {
	Bytes           []byte
	MimeType        string
	DurationSeconds float64
	Timing          *Timing
}

// Synthesizer converts text to speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (Result, error)
}

// SynthesizerFunc adapts a function to Synthesizer.
type SynthesizerFunc func(ctx context.Context, req Request) (Result, error)

// Synthesize calls f.
func (f SynthesizerFunc) Synthesize(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// WordsFromCharacters groups per-character alignment into words split on
// whitespace. The three slices are parallel; extra entries in longer slices
// are ignored.
func WordsFromCharacters(chars []string, starts, ends []float64) []Word {
	n := min(len(chars), len(starts), len(ends))
	var words []Word
	var current strings.Builder
	var start, end float64
	flush := func() {
		if current.Len() == 0 {
			return
		}
		words = append(words, Word{Text: current.String(), Start: start, End: end})
		current.Reset()
	}
	for i := 0; i < n; i++ {
		ch := chars[i]
		if strings.TrimFunc(ch, unicode.IsSpace) == "" {
			flush()
			continue
		}
		if current.Len() == 0 {
			start = starts[i]
		}
		current.WriteString(ch)
		end = ends[i]
	}
	flush()
	return words
}
