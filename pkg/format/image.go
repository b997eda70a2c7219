package format

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"

	"github.com/berrythewa/cliplog/internal/clipboard"
	"github.com/berrythewa/cliplog/internal/types"
)

// ImageInfo describes a stored image payload
type ImageInfo struct {
	MediaType string
	Size      int64
	Width     int
	Height    int
}

// DescribeImage decodes the data URL header and PNG dimensions.
// Dimensions are zero when the bytes are not a decodable PNG.
func DescribeImage(entry *types.HistoryEntry) (ImageInfo, error) {
	mediaType, data, err := clipboard.DecodeDataURL(entry.ImageData)
	if err != nil {
		return ImageInfo{}, err
	}
	info := ImageInfo{MediaType: mediaType, Size: int64(len(data))}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		info.Width, info.Height = cfg.Width, cfg.Height
	}
	return info, nil
}

// FormatImage formats image content for display
func FormatImage(entry *types.HistoryEntry, opts Options) string {
	info, err := DescribeImage(entry)
	if err != nil {
		return "[Unreadable image data]"
	}
	if info.Width > 0 {
		return fmt.Sprintf("[%s %dx%d - %s]", info.MediaType, info.Width, info.Height, FormatSize(info.Size))
	}
	return fmt.Sprintf("[Binary image data - %s]", FormatSize(info.Size))
}

// FormatImagePreview creates a short preview of image content
func FormatImagePreview(entry *types.HistoryEntry, maxLen int) string {
	info, err := DescribeImage(entry)
	if err != nil {
		return "[Image]"
	}
	if info.Width > 0 {
		return TruncateText(fmt.Sprintf("[Image %dx%d %s]", info.Width, info.Height, FormatSize(info.Size)), maxLen)
	}
	return TruncateText(fmt.Sprintf("[Image %s]", FormatSize(info.Size)), maxLen)
}
