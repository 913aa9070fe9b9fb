package qrtoken

import qrcode "github.com/skip2/go-qrcode"

const DefaultQRSize = 300

// QRPNG: チェックインURLをQRコード（PNG）にする
func QRPNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}
