// Package oversample runs a per-sample nonlinear stage at an integer multiple
// of the host rate.
//
// Each input sample is interpolated to factor samples by a polyphase
// Kaiser-windowed sinc filter, the stage runs on every one of them, and the
// result is band-limited by the same prototype and decimated back. The round
// trip is linear phase with an integer latency of TapsPerPhase-1 host
// samples.
//
// Quality modes:
//
//	mode            taps/phase   nominal stopband
//	QualityFast     16           ~55 dB
//	QualityBalanced 32           ~75 dB
//	QualityBest     64           ~90 dB
package oversample
