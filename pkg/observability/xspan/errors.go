package xspan

import "errors"

var (
	// ErrInvalidIdentifier 标识符长度、字符集不合法或全零。
	ErrInvalidIdentifier = errors.New("xspan: invalid identifier")

	// ErrAttributeEncoding 属性 key 为空或值类型无法编码，该属性被跳过。
	ErrAttributeEncoding = errors.New("xspan: attribute cannot be encoded")

	// ErrSpanEnded span 已结束。
	ErrSpanEnded = errors.New("xspan: span already ended")
)
