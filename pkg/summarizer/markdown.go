package summarizer

import (
	"fmt"
	"strings"
	"time"
)

// MarkdownFormatter renders a Summary as a Markdown document.
type MarkdownFormatter struct {
	translate func(string) string
	version   string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator sets the function used to translate labels.
func WithTranslator(t func(string) string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.translate = t
	}
}

// WithVersion sets the version shown in the footer.
func WithVersion(v string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.version = v
	}
}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{
		translate: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements the Formatter interface.
func (f *MarkdownFormatter) Format(s *Summary) string {
	t := f.translate
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", t("Recording Summary"))
	fmt.Fprintf(&b, "%s: %s\n\n", t("Generated"), s.GeneratedAt.Format(time.RFC3339))

	if s.Error != "" {
		fmt.Fprintf(&b, "> **%s**: %s\n\n", t("Aborted"), s.Error)
	}

	fmt.Fprintf(&b, "## %s\n\n", t("Results"))
	f.header(&b)
	f.row(&b, "File", s.Recording.Path)
	if s.Recording.ID != "" {
		f.row(&b, "Job ID", s.Recording.ID)
	}
	if !s.Recording.StartedAt.IsZero() {
		f.row(&b, "Started", s.Recording.StartedAt.Format(time.RFC3339))
	}
	f.row(&b, "Duration", formatDuration(s.Recording.Duration))
	f.row(&b, "File Size", formatBytes(s.Recording.FileSize))
	b.WriteString("\n")

	fmt.Fprintf(&b, "## %s\n\n", t("Devices"))
	f.header(&b)
	f.row(&b, "Video Device", valueOr(s.Devices.Video, t("None")))
	f.row(&b, "Audio Device", valueOr(s.Devices.Audio, t("None")))
	b.WriteString("\n")

	fmt.Fprintf(&b, "## %s\n\n", t("Video Details"))
	f.header(&b)
	f.row(&b, "Codec", valueOr(s.Video.Codec, t("None")))
	if s.Video.Width > 0 && s.Video.Height > 0 {
		f.row(&b, "Frame Size", fmt.Sprintf("%dx%d", s.Video.Width, s.Video.Height))
	}
	if s.Video.FPS > 0 {
		f.row(&b, "Frame Rate", fmt.Sprintf("%.2f fps", s.Video.FPS))
	}
	f.row(&b, "Samples", fmt.Sprintf("%d", s.Video.Samples))
	f.row(&b, "Dropped", fmt.Sprintf("%d", s.Video.Dropped))
	b.WriteString("\n")

	if s.Audio.Codec != "" {
		fmt.Fprintf(&b, "## %s\n\n", t("Audio Details"))
		f.header(&b)
		f.row(&b, "Codec", s.Audio.Codec)
		f.row(&b, "Sample Rate", fmt.Sprintf("%d Hz", s.Audio.SampleRate))
		f.row(&b, "Channels", fmt.Sprintf("%d", s.Audio.Channels))
		f.row(&b, "Samples", fmt.Sprintf("%d", s.Audio.Samples))
		f.row(&b, "Dropped", fmt.Sprintf("%d", s.Audio.Dropped))
		b.WriteString("\n")
	}

	if s.Late > 0 {
		fmt.Fprintf(&b, "%s: %d\n\n", t("Late samples"), s.Late)
	}

	b.WriteString("---\n\n")
	footer := t("Generated by") + " avgrabber"
	if f.version != "" {
		footer += " " + f.version
	}
	b.WriteString(footer + "\n")

	return b.String()
}

func (f *MarkdownFormatter) header(b *strings.Builder) {
	fmt.Fprintf(b, "| %s | %s |\n", f.translate("Item"), f.translate("Value"))
	b.WriteString("|---|---|\n")
}

func (f *MarkdownFormatter) row(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "| %s | %s |\n", f.translate(label), value)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.3f s", d.Seconds())
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
