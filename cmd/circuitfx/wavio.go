package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// readWAVMono decodes a WAV file and averages its channels. The decoder
// delivers samples already scaled to [-1, 1].
func readWAVMono(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid wav file: %s", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}

	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("invalid wav buffer: %s", path)
	}

	if buf.Format.SampleRate <= 0 {
		return nil, 0, fmt.Errorf("invalid wav sample-rate: %d", buf.Format.SampleRate)
	}

	return downmix(buf.Data, buf.Format.NumChannels), buf.Format.SampleRate, nil
}

// downmix averages interleaved frames.
func downmix(data []float32, channels int) []float64 {
	if channels < 1 {
		return nil
	}

	frames := len(data) / channels
	out := make([]float64, frames)

	for i := range frames {
		var sum float64
		for c := range channels {
			sum += float64(data[i*channels+c])
		}

		out[i] = sum / float64(channels)
	}

	return out
}

func writeWAVMono(path string, data []float64, sampleRate, bitDepth int) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	samples := make([]float32, len(data))
	for i, v := range data {
		samples[i] = float32(v)
	}

	enc := wav.NewEncoder(f, sampleRate, bitDepth, 1, 1)

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: 1,
		},
		Data:           samples,
		SourceBitDepth: bitDepth,
	}

	if err := enc.Write(buf); err != nil {
		return err
	}

	return enc.Close()
}
