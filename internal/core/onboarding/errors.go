package onboarding

import "errors"

var (
	// ErrAlreadyOnboarded はオンボーディング済みの人物に再実行した場合に返却されます。
	ErrAlreadyOnboarded = errors.New("person has already completed onboarding")
	// ErrInvalidSalaryRange は報酬帯の指定が存在しない場合に返却されます。
	ErrInvalidSalaryRange = errors.New("invalid salary range")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("invalid id")
)
