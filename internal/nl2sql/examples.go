package nl2sql

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ParseExamples splits an example block into statements for listing. A statement ends
// at a line whose trimmed text ends with a semicolon; leading comment lines
// stay attached to the statement that follows them.
func ParseExamples(r io.Reader) ([]string, error) {
	var (
		examples []string
		current  []string
	)
	flush := func() {
		text := strings.TrimSpace(strings.Join(current, "\n"))
		current = current[:0]
		if text == "" || onlyComments(text) {
			return
		}
		examples = append(examples, text)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" && len(current) == 0 {
			continue
		}
		current = append(current, line)
		if strings.HasSuffix(strings.TrimSpace(line), ";") && !strings.HasPrefix(strings.TrimSpace(line), "--") {
			flush()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read examples: %w", err)
	}
	flush()
	return examples, nil
}

// LoadExamplesFile reads the example block that goes into prompts as is.
func LoadExamplesFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read examples file: %w", err)
	}
	return string(content), nil
}

func onlyComments(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}
