package visionextractor

import "context"

// StubEngine implements Engine with canned output for tests and offline
// runs.
type StubEngine struct {
	Text       string
	Confidence float64
	Err        error

	// Calls records each image size the stub was asked to transcribe.
	Calls []int
}

// Transcribe implements Engine.
func (s *StubEngine) Transcribe(_ context.Context, image []byte, _ string) (string, float64, error) {
	s.Calls = append(s.Calls, len(image))
	if s.Err != nil {
		return "", 0, s.Err
	}
	return s.Text, s.Confidence, nil
}
