package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/tidwall/gjson"
	"golang.org/x/term"

	"github.com/dshills/keyconf/internal/config"
	"github.com/dshills/keyconf/internal/config/diag"
	"github.com/dshills/keyconf/internal/config/keymap"
	"github.com/dshills/keyconf/internal/config/notify"
	"github.com/dshills/keyconf/internal/config/schema"
	"github.com/dshills/keyconf/internal/config/theme"
	"github.com/dshills/keyconf/internal/config/watcher"
)

// command runs against an engine whose layers are registered but not
// yet loaded.
type command func(ctx context.Context, eng *config.Engine, opts *options, w io.Writer) error

var commands = map[string]command{
	"check":  runCheck,
	"dump":   runDump,
	"lookup": runLookup,
	"theme":  runTheme,
	"schema": runSchema,
	"watch":  runWatch,
}

func runCheck(ctx context.Context, eng *config.Engine, opts *options, w io.Writer) error {
	if err := eng.ReloadContext(ctx); err != nil {
		return err
	}
	snap := eng.Snapshot()
	st := newStyles(w)

	renderLayers(w, st, snap)
	fmt.Fprintln(w)
	renderDiagnostics(w, st, snap.Diagnostics())
	fmt.Fprintln(w)
	fmt.Fprintln(w, summary(st, snap))

	threshold := diag.SeverityError
	if opts.Strict {
		threshold = diag.SeverityWarning
	}
	if diag.Count(snap.Diagnostics(), threshold) > 0 {
		return errProblems
	}
	return nil
}

func runDump(ctx context.Context, eng *config.Engine, opts *options, w io.Writer) error {
	if err := eng.ReloadContext(ctx); err != nil {
		return err
	}
	data, err := json.Marshal(eng.Snapshot())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	path := "@pretty"
	if opts.Path != "" {
		if !gjson.GetBytes(data, opts.Path).Exists() {
			return fmt.Errorf("nothing at %q", opts.Path)
		}
		path = opts.Path + "|@pretty"
	}
	_, err = io.WriteString(w, gjson.GetBytes(data, path).String())
	return err
}

func runLookup(ctx context.Context, eng *config.Engine, opts *options, w io.Writer) error {
	if len(opts.args) == 0 {
		return errors.New("lookup: at least one chord required")
	}
	mode, err := keymap.ParseMode(opts.Mode)
	if err != nil {
		return err
	}
	if err := eng.ReloadContext(ctx); err != nil {
		return err
	}

	st := newStyles(w)
	table := eng.Snapshot().Keymap()
	unbound := 0
	for _, chord := range opts.args {
		b, ok := table.Binding(chord, mode)
		if !ok {
			unbound++
			fmt.Fprintf(w, "%-16s %s\n", chord, st.faint.Render("unbound"))
			continue
		}
		fmt.Fprintf(w, "%-16s %s %s\n", b.Chord, b.Action, st.faint.Render("(layer "+b.Layer+")"))
	}
	if unbound > 0 {
		return fmt.Errorf("%d of %d chords unbound in %s mode", unbound, len(opts.args), mode)
	}
	return nil
}

// previews holds the sample source highlighted by the theme command.
var previews = map[string]string{
	"go": `// Greet returns a greeting.
func Greet(name string) string {
	const prefix = "Hello, "
	return prefix + name + strconv.Itoa(42)
}
`,
	"python": `# Greet returns a greeting.
def greet(name: str) -> str:
    prefix = "Hello, "
    return prefix + name + str(42)
`,
	"toml": `# Editor settings
[editor]
tab_size = 4
font_family = "monospace"
`,
}

func runTheme(ctx context.Context, eng *config.Engine, opts *options, w io.Writer) error {
	if err := eng.ReloadContext(ctx); err != nil {
		return err
	}
	snap := eng.Snapshot()
	st := newStyles(w)
	renderPalette(w, st, snap.Palette())

	if opts.Preview == "" || opts.Preview == "none" {
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, st.heading.Render("Preview"))
	return highlight(w, opts.Preview, snap.Palette())
}

// highlight renders the sample for lang with the palette's colors.
func highlight(w io.Writer, lang string, p *theme.Palette) error {
	src, ok := previews[lang]
	if !ok {
		return fmt.Errorf("no preview for %q", lang)
	}
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style, err := theme.ChromaStyle("keyconf", p)
	if err != nil {
		return err
	}
	formatter := formatters.NoOp
	if isTerminal(w) {
		formatter = formatters.Get("terminal16m")
	}

	it, err := lexer.Tokenise(nil, src)
	if err != nil {
		return fmt.Errorf("tokenise %s: %w", lang, err)
	}
	return formatter.Format(w, style, it)
}

// isTerminal reports whether w writes to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runSchema(_ context.Context, eng *config.Engine, _ *options, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(schema.Export(eng.Registry()))
}

func runWatch(ctx context.Context, eng *config.Engine, opts *options, w io.Writer) error {
	st := newStyles(w)
	sub := eng.Subscribe(func(c notify.Change) {
		if c.Type != notify.ChangeReload {
			fmt.Fprintf(w, "  %s %s\n", st.faint.Render(c.Type.String()), c.Path)
			return
		}
		snap := eng.Snapshot()
		fmt.Fprintln(w, summary(st, snap))
		for _, d := range snap.Diagnostics() {
			if d.Severity >= diag.SeverityWarning {
				fmt.Fprintf(w, "  %s %s\n", st.severity(d.Severity).Render(d.Severity.String()), describe(d))
			}
		}
	})
	defer sub.Unsubscribe()

	if err := eng.ReloadContext(ctx); err != nil {
		return err
	}

	wt, err := watcher.New(watcher.WithDebounce(opts.Debounce))
	if err != nil {
		return err
	}
	defer wt.Close()

	if err := eng.Watch(ctx, wt); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
