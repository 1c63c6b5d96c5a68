package content

// Tables maps lower-case file extensions to preview categories and highlight
// languages. A Tables value is configuration: build one with DefaultTables and
// adjust it before handing it to New.
type Tables struct {
	Markdown     map[string]struct{}
	Text         map[string]struct{}
	Image        map[string]struct{}
	PDF          map[string]struct{}
	Word         map[string]struct{}
	Spreadsheet  map[string]struct{}
	Presentation map[string]struct{}
	Languages    map[string]string
}

// DefaultTables returns the built-in extension tables. CSV-like data files are
// classified as text; spreadsheets are the binary office formats only.
func DefaultTables() Tables {
	return Tables{
		Markdown: setOf("md", "markdown", "mdown", "mkd"),
		Text: setOf(
			"txt", "log", "gitignore", "gitattributes", "java", "js", "ts", "css", "scss", "html", "xml",
			"json", "yml", "yaml", "properties", "gradle", "py", "rb", "go", "rs", "sh", "bat", "sql",
			"c", "h", "cpp", "hpp", "cs", "kt", "swift", "php", "pl", "r", "scala", "clj", "hs", "lua",
			"vim", "conf", "cfg", "ini", "env", "dockerfile", "makefile", "cmake", "toml", "lock",
			"proto", "thrift", "graphql", "dart", "elm", "erlang", "ex", "exs", "fs", "fsx", "ml", "mli",
			"nim", "pas", "pp", "tcl", "vb", "vbs", "asm", "s", "m", "mm", "plist", "strings",
			"mod", "sum", "csv", "tsv", "psv", "dsv",
		),
		Image:        setOf("png", "jpg", "jpeg", "gif", "bmp", "svg", "webp", "avif"),
		PDF:          setOf("pdf"),
		Word:         setOf("doc", "docx"),
		Spreadsheet:  setOf("xls", "xlsx", "ods"),
		Presentation: setOf("ppt", "pptx"),
		Languages: map[string]string{
			"java":  "java",
			"js":    "javascript",
			"ts":    "typescript",
			"css":   "css",
			"scss":  "scss",
			"html":  "html",
			"xml":   "xml",
			"json":  "json",
			"yml":   "yaml",
			"yaml":  "yaml",
			"sh":    "bash",
			"bash":  "bash",
			"bat":   "dos",
			"py":    "python",
			"rb":    "ruby",
			"go":    "go",
			"rs":    "rust",
			"c":     "c",
			"h":     "c",
			"cpp":   "cpp",
			"hpp":   "cpp",
			"cs":    "csharp",
			"kt":    "kotlin",
			"swift": "swift",
			"sql":   "sql",
			"toml":  "toml",
			"md":    "markdown",
		},
	}
}

// categoryOf looks an extension up in the tables, in precedence order.
func (t Tables) categoryOf(ext string) (Category, bool) {
	lookups := []struct {
		set      map[string]struct{}
		category Category
	}{
		{t.Markdown, CategoryMarkdown},
		{t.Text, CategoryText},
		{t.Image, CategoryImage},
		{t.PDF, CategoryPDF},
		{t.Word, CategoryWord},
		{t.Spreadsheet, CategorySpreadsheet},
		{t.Presentation, CategoryPresentation},
	}

	for _, l := range lookups {
		if _, ok := l.set[ext]; ok {
			return l.category, true
		}
	}

	return CategoryBinary, false
}

func setOf(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}

	return set
}
