package service

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	titleMinLen   = 3
	titleMaxLen   = 255
	contentMaxLen = 5000
)

func validateTitle(title string) error {
	l := utf8.RuneCountInString(strings.TrimSpace(title))
	if l < titleMinLen || l > titleMaxLen {
		return fmt.Errorf("title must be %d-%d characters: %w", titleMinLen, titleMaxLen, ErrValidation)
	}
	return nil
}

func validateContent(content string) error {
	if utf8.RuneCountInString(content) > contentMaxLen {
		return fmt.Errorf("content exceeds %d characters: %w", contentMaxLen, ErrValidation)
	}
	return nil
}

func clampPage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return offset, limit
}
