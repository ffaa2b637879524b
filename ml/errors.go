package ml

import "errors"

var (
	ErrInvalidInput     = errors.New("ml: invalid input")
	ErrUnknownModel     = errors.New("ml: unknown model")
	ErrNotPrepared      = errors.New("ml: data not prepared, call PrepareData first")
	ErrNotTrained       = errors.New("ml: model not trained")
	ErrSchemaMismatch   = errors.New("ml: feature columns do not match the trained model")
	ErrCorruptArtifact  = errors.New("ml: corrupt model bundle")
	errFeatureMismatch  = errors.New("feature count mismatch")
	errEmptyTrainingSet = errors.New("features or labels empty")
)
