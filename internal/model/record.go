package model

// Language is a training label. Any label that round-trips through the
// corpus is valid unless a closed set is configured.
type Language string

// String returns the label
func (l Language) String() string {
	return string(l)
}

// EndOfStream is the reserved label carried by the pipeline sentinel.
// It contains a NUL byte so no corpus line can produce it.
const EndOfStream Language = "\x00end-of-stream"

// TrainingRecord is one labeled corpus line
type TrainingRecord struct {
	Text     string
	Language Language
}

// Sentinel returns the end-of-stream record
func Sentinel() TrainingRecord {
	return TrainingRecord{Language: EndOfStream}
}

// IsSentinel reports whether the record signals end of stream
func (r TrainingRecord) IsSentinel() bool {
	return r.Language == EndOfStream
}
