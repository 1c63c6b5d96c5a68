package notifications

// defaultTemplate renders one line per completed push.
const defaultTemplate = `
{{- .User }} pushed to {{ .Repository }}
{{- with .Refs }}: {{ range $i, $ref := . }}{{ if $i }}, {{ end }}{{ $ref }}{{ end }}{{ end }} from {{ .ClientAddress -}}
{{- if .UserAgent }} ({{ .UserAgent }}){{ end }} at {{ Timestamp .Timestamp -}}
`
