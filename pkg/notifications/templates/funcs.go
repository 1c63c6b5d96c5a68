// Package templates provides helper functions available to minigit notification templates.
package templates

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Funcs defines the functions available to notification templates.
var Funcs = template.FuncMap{
	"ToUpper":   strings.ToUpper,
	"ToLower":   strings.ToLower,
	"ToJSON":    toJSON,
	"Title":     cases.Title(language.AmericanEnglish).String,
	"Timestamp": timestamp,
}

// toJSON marshals a value to an indented JSON string.
// On failure it logs a warning and returns the error text instead.
func toJSON(v any) string {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"value": fmt.Sprintf("%v", v),
		}).Warn("Failed to marshal JSON in notification template")

		return fmt.Sprintf("failed to marshal JSON in notification template: %v", err)
	}

	return string(bytes)
}

// timestamp formats t as RFC 3339 in UTC.
func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
