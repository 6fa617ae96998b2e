package scanner

import "fmt"

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatSize renders a byte count in binary units: "0 Bytes", "512 Bytes",
// "1.5 KB", "2.0 MB". Values past GB stay in GB.
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	i := 0
	scaled := float64(bytes)
	for scaled >= 1024 && i < len(sizeUnits)-1 {
		scaled /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d Bytes", bytes)
	}
	return fmt.Sprintf("%.1f %s", scaled, sizeUnits[i])
}
