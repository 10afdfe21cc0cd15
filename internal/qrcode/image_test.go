package qrcode

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPNG_roundTrip(t *testing.T) {
	const value = "sVQ5eTg0m7TYQ1ZdJ0VnF3N0YQ3dM1kQ9pG7wA2hR5M"

	data, err := RenderPNG(value, 300)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())

	// 画像をデコードして元のコード値に戻ること
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	require.NoError(t, err)
	result, err := zxqr.NewQRCodeReader().Decode(bmp, nil)
	require.NoError(t, err)
	assert.Equal(t, value, result.GetText())
}

func TestRenderPNG_defaultSize(t *testing.T) {
	data, err := RenderPNG("some-value", 0)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
}

func TestRenderPNG_emptyValue(t *testing.T) {
	_, err := RenderPNG("", 300)
	assertCode(t, err, CodeInvalidArgument)
}
