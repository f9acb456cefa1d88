package domain

import "errors"

var (
	// ErrJobNotFound は指定IDのジョブが存在しない場合のエラー
	ErrJobNotFound = errors.New("job not found")
)
