package segments

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"voiceloom/internal/language"
	"voiceloom/internal/project"
)

// ParseList reads a pipe-separated transcript list. Each non-blank line is
// `filepath|label|LANG|text`; lines with fewer than four fields are skipped.
// Text may itself contain pipes, so the split stops after three separators.
func ParseList(path, fallbackLanguage string) ([]project.AudioSegment, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open list %s: %w", path, err)
	}
	defer file.Close()

	var parsed []project.AudioSegment
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "|", 4)
		if len(fields) < 4 {
			continue
		}
		audioPath := strings.TrimSpace(fields[0])
		lang := strings.ToLower(strings.TrimSpace(fields[2]))
		if code := language.Normalize(lang); code != "" {
			lang = code
		}
		if lang == "" {
			lang = fallbackLanguage
		}
		parsed = append(parsed, project.AudioSegment{
			ID:       project.NewID(),
			Filename: filepath.Base(audioPath),
			Filepath: audioPath,
			Text:     strings.TrimSpace(fields[3]),
			Language: lang,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read list %s: %w", path, err)
	}
	return parsed, nil
}

// WriteList writes the transcript list the training toolkit consumes: one
// line per labeled segment, `filepath|name|LANGUAGE|text` with the language
// upper-cased. Segments with empty text are excluded. Returns the number of
// lines written.
func WriteList(path, name string, segs []project.AudioSegment) (int, error) {
	var builder strings.Builder
	count := 0
	for _, segment := range segs {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&builder, "%s|%s|%s|%s\n", segment.Filepath, name, language.ListCode(segment.Language), text)
		count++
	}
	if err := os.WriteFile(path, []byte(builder.String()), 0o644); err != nil {
		return 0, fmt.Errorf("write list %s: %w", path, err)
	}
	return count, nil
}
