// Package delivery делит длинные ответы на части и отправляет их по порядку.
package delivery

import (
	"strings"
	"unicode/utf8"
)

// Split делит текст по строкам на части длиной не более limit символов.
// Строка длиннее limit не разрезается и становится отдельной частью.
// strings.Join(Split(text, limit), "\n") восстанавливает исходный текст.
func Split(text string, limit int) []string {
	if text == "" {
		return nil
	}
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		chunks  []string
		current strings.Builder
		size    int
		started bool
	)
	for _, line := range strings.Split(text, "\n") {
		lineSize := utf8.RuneCountInString(line)
		if started && size+1+lineSize > limit {
			chunks = append(chunks, current.String())
			current.Reset()
			size = 0
			started = false
		}
		if started {
			current.WriteByte('\n')
			size++
		}
		current.WriteString(line)
		size += lineSize
		started = true
	}
	if started {
		chunks = append(chunks, current.String())
	}
	return chunks
}
