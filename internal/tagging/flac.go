package tagging

import (
	"fmt"
	"strings"

	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"
)

func readFLACFields(path string, keys []string) (map[string]string, error) {
	f, err := flac.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse flac: %w", err)
	}

	cmt, _, err := findVorbisComment(f)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string, len(keys))
	if cmt == nil {
		return values, nil
	}

	for _, key := range keys {
		vals, err := cmt.Get(key)
		if err != nil {
			return nil, fmt.Errorf("failed to read vorbis comment %s: %w", key, err)
		}
		if len(vals) > 0 {
			values[key] = vals[0]
		}
	}
	return values, nil
}

func writeFLACFields(path string, fields map[string]string) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse flac: %w", err)
	}

	cmt, idx, err := findVorbisComment(f)
	if err != nil {
		return err
	}
	if cmt == nil {
		cmt = flacvorbis.New()
	}

	// Drop comments being replaced, keep everything else.
	filtered := cmt.Comments[:0]
	for _, c := range cmt.Comments {
		name, _, found := strings.Cut(c, "=")
		if _, replaced := fields[strings.ToUpper(name)]; found && replaced {
			continue
		}
		filtered = append(filtered, c)
	}
	cmt.Comments = filtered

	for key, value := range fields {
		if err := cmt.Add(key, value); err != nil {
			return fmt.Errorf("failed to add vorbis comment %s: %w", key, err)
		}
	}

	block := cmt.Marshal()
	if idx >= 0 {
		f.Meta[idx] = &block
	} else {
		f.Meta = append(f.Meta, &block)
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("failed to save flac: %w", err)
	}
	return nil
}

func findVorbisComment(f *flac.File) (*flacvorbis.MetaDataBlockVorbisComment, int, error) {
	for idx, meta := range f.Meta {
		if meta.Type != flac.VorbisComment {
			continue
		}
		cmt, err := flacvorbis.ParseFromMetaDataBlock(*meta)
		if err != nil {
			return nil, -1, fmt.Errorf("failed to parse vorbis comment block: %w", err)
		}
		return cmt, idx, nil
	}
	return nil, -1, nil
}
