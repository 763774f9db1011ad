// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package provider

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/traylinx/switchAIChat/internal/constant"
)

// TitlePrompt asks a model for a short conversation title.
const TitlePrompt = "Generate a short title (at most 6 words) that summarizes the following message. " +
	"Answer with the title only, without quotes or punctuation at the end.\n\nMessage: %s"

const (
	maxTitleLength = 80
	titleTrimSet   = " \t\"'`*_#“”‘’"
)

var (
	// Leaked transcript prefixes such as "[14/10/2026 10:22] Assistant:" or "Bot:".
	leakedPrefixPattern = regexp.MustCompile(`(?i)^\s*(\[[^\]]{0,40}\]\s*)?(assistant|assistente|bot|model|ai|ia)\s*:\s*`)
	leakedStampPattern  = regexp.MustCompile(`^\s*\[\d{1,4}[/:.\-]\d{1,2}[/:.\-]?\d{0,4}[^\]]{0,24}\]\s*`)

	titleBoilerplate = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*(sure|certainly|of course|ok(ay)?)([,!.]\s*|\s+)`),
		regexp.MustCompile(`(?i)^\s*here(\s+are|\s+is)?\s+(some|a few|a|the)?\s*(options|suggestions|titles?|title suggestion)\s*(for\s+[^:]*)?:\s*`),
		regexp.MustCompile(`(?i)^\s*(suggested\s+)?(title|t[ií]tulo)\s*:\s*`),
		regexp.MustCompile(`^\s*([-*•]|\d+[.)])\s+`),
	}
)

// SanitizeOutput strips role and timestamp prefixes that models sometimes echo
// from the transcript at the start of a reply.
func SanitizeOutput(text string) string {
	out := text
	for i := 0; i < 3; i++ {
		next := leakedPrefixPattern.ReplaceAllString(out, "")
		next = leakedStampPattern.ReplaceAllString(next, "")
		if next == out {
			break
		}
		out = next
	}
	return strings.TrimSpace(out)
}

// CleanTitle normalizes a model-generated title. It returns "" when nothing usable remains.
func CleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	for _, re := range titleBoilerplate {
		title = re.ReplaceAllString(title, "")
	}
	// Keep the first non-empty line only.
	for _, line := range strings.Split(title, "\n") {
		line = strings.TrimSpace(line)
		for _, re := range titleBoilerplate {
			line = re.ReplaceAllString(line, "")
		}
		if line != "" {
			title = line
			break
		}
	}
	for {
		next := strings.TrimRight(strings.Trim(title, titleTrimSet), ".!:;,")
		if next == title {
			break
		}
		title = next
	}
	if title == "" {
		return ""
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		runes := []rune(title)
		title = strings.TrimSpace(string(runes[:maxTitleLength]))
	}
	r, size := utf8.DecodeRuneInString(title)
	return string(unicode.ToUpper(r)) + title[size:]
}

// TitleOrFallback returns the cleaned title or the fallback title.
func TitleOrFallback(raw string) string {
	if t := CleanTitle(raw); t != "" {
		return t
	}
	return constant.FallbackTitle
}

var mimeByExtension = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".json": "application/json",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
}

// MimeFromExtension derives a MIME type from the file extension of ref.
func MimeFromExtension(ref string) string {
	if mt, ok := mimeByExtension[strings.ToLower(path.Ext(ref))]; ok {
		return mt
	}
	return "application/octet-stream"
}

// AttachmentReader loads stored attachment bytes.
type AttachmentReader interface {
	Read(ctx context.Context, ref string) ([]byte, error)
}

// LoadAttachment reads a's bytes and resolves its MIME type.
func LoadAttachment(ctx context.Context, r AttachmentReader, a *Attachment) ([]byte, string, error) {
	if r == nil {
		return nil, "", fmt.Errorf("no attachment store configured")
	}
	data, err := r.Read(ctx, a.Ref)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read attachment %s: %w", a.Ref, err)
	}
	mt := a.MimeType
	if mt == "" {
		mt = MimeFromExtension(a.Ref)
	}
	return data, mt, nil
}

// SystemPromptWithSearch appends a search results block to the system prompt.
func SystemPromptWithSearch(system, results string) string {
	if results == "" {
		return system
	}
	if system == "" {
		return results
	}
	return system + "\n\n" + results
}

// ErrorText formats a provider failure for the end user.
func ErrorText(providerName string, err error) string {
	return fmt.Sprintf("Sorry, %s could not generate a response right now (%v).", providerName, err)
}
