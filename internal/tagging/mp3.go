package tagging

import (
	"fmt"

	"github.com/bogem/id3v2/v2"
)

func readMP3Fields(path string, keys []string) (map[string]string, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open mp3 tag: %w", err)
	}
	defer tag.Close() //nolint:errcheck // read-only

	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}

	values := make(map[string]string, len(keys))
	for _, framer := range tag.GetFrames("TXXX") {
		udt, ok := framer.(id3v2.UserDefinedTextFrame)
		if !ok {
			continue
		}
		if wanted[udt.Description] {
			values[udt.Description] = udt.Value
		}
	}
	return values, nil
}

// writeMP3Fields replaces the TXXX frames named in fields, keeping all
// other frames as-is. id3v2 appends on Add, so existing TXXX frames are
// collected, dropped, and re-added without the replaced descriptions.
func writeMP3Fields(path string, fields map[string]string) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open mp3 tag: %w", err)
	}
	defer tag.Close() //nolint:errcheck // Save flushes, Close releases the handle

	var kept []id3v2.UserDefinedTextFrame
	for _, framer := range tag.GetFrames("TXXX") {
		udt, ok := framer.(id3v2.UserDefinedTextFrame)
		if !ok {
			continue
		}
		if _, replaced := fields[udt.Description]; !replaced {
			kept = append(kept, udt)
		}
	}

	tag.DeleteFrames("TXXX")
	for _, udt := range kept {
		tag.AddUserDefinedTextFrame(udt)
	}
	for desc, value := range fields {
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: desc,
			Value:       value,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save mp3 tag: %w", err)
	}
	return nil
}
