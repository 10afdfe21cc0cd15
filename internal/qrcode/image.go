package qrcode

import (
	qrgen "github.com/skip2/go-qrcode"
)

// RenderPNG: コード値をそのままPNGのQR画像にする。
// デコードすると必ず元の文字列に戻ること（端末アプリ側が前提にしている）。
func RenderPNG(value string, size int) ([]byte, error) {
	if value == "" {
		return nil, ErrInvalid("qr code value is empty")
	}
	if size <= 0 {
		size = 300
	}
	png, err := qrgen.Encode(value, qrgen.Medium, size)
	if err != nil {
		return nil, ErrInternal("failed to generate qr code image")
	}
	return png, nil
}
