// Command patchbay renders and plays modular synthesizer patches.
//
//	patchbay render [-o out.wav] [-note A4] [-hold 1s] [-tail 500ms] [-melody "C4:250ms E4:250ms"] patch
//	patchbay play [-midi /dev/snd/midiC1D0] patch
//	patchbay check [-json] patch
//	patchbay describe [kind]
//
// A patch is either patch source (see examples/*.lisp) or a saved instrument
// in JSON form.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/chazu/patchbay/pkg/audio/oto"
	"github.com/chazu/patchbay/pkg/audio/wav"
	"github.com/chazu/patchbay/pkg/control"
	"github.com/chazu/patchbay/pkg/graph"
	"github.com/chazu/patchbay/pkg/render"
	"github.com/chazu/patchbay/pkg/session"
	"gitlab.com/gomidi/midi/v2"
	"golang.org/x/term"
)

var (
	errUsage       = errors.New("usage")
	errCheckFailed = errors.New("check failed")
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: patchbay <command> [flags] [args]

commands:
  render    render a patch to a WAV file
  play      play a patch live from the keyboard or a MIDI device
  check     evaluate and compile a patch, reporting problems
  describe  list node kinds with their inputs and knobs

run "patchbay <command> -h" for command flags`)
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("patchbay: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	app := NewApp()
	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "render":
		err = runRender(app, args)
	case "play":
		err = runPlay(app, args)
	case "check":
		err = runCheck(app, args, os.Stdout)
	case "describe":
		err = runDescribe(args, os.Stdout)
	case "help", "-h", "-help", "--help":
		usage()
		return
	default:
		log.Printf("unknown command %q", os.Args[1])
		usage()
		os.Exit(2)
	}

	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		os.Exit(2)
	case errors.Is(err, errCheckFailed):
		os.Exit(1)
	default:
		log.Fatal(err)
	}
}

// audioFlags binds the settings shared by every command that compiles.
func (a *App) audioFlags(fs *flag.FlagSet) {
	fs.Float64Var(&a.sampleRate, "sr", DefaultSampleRate, "sample rate in Hz")
	fs.IntVar(&a.blockSize, "block", DefaultBlockSize, "block size in samples")
	fs.Uint64Var(&a.seed, "seed", 0, "noise seed")
}

// patchArg returns the single patch path argument of fs.
func patchArg(fs *flag.FlagSet) (string, error) {
	if fs.NArg() != 1 {
		fmt.Fprintf(fs.Output(), "%s: expected one patch file\n", fs.Name())
		fs.Usage()
		return "", errUsage
	}
	return fs.Arg(0), nil
}

// ---------------------------------------------------------------------------
// render
// ---------------------------------------------------------------------------

func runRender(app *App, args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	app.audioFlags(fs)
	out := fs.String("o", "out.wav", "output WAV file")
	note := fs.String("note", "A4", "note to hold, as a name or MIDI key")
	hold := fs.Duration("hold", time.Second, "how long the note is held")
	tail := fs.Duration("tail", 500*time.Millisecond, "silence rendered after the last note ends")
	melody := fs.String("melody", "", `notes to play instead of -note, e.g. "C4:250ms E4:250ms r:250ms"`)
	fs.Parse(args)

	path, err := patchArg(fs)
	if err != nil {
		return err
	}
	source, err := ReadPatch(path)
	if err != nil {
		return err
	}

	var score *control.Score
	if *melody != "" {
		if score, err = control.ParseMelody(*melody); err != nil {
			return err
		}
	} else {
		key, err := control.ParseNote(*note)
		if err != nil {
			return err
		}
		score = control.Hold(key, *hold)
	}
	score.Pad(*tail)

	w, err := wav.Create(*out, int(app.sampleRate))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	stats, err := app.Render(ctx, source, score, w)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	log.Printf("wrote %s: %d samples in %d blocks, peak %.3f (%v)",
		*out, stats.Samples, stats.Blocks, stats.Peak, time.Since(start).Round(time.Millisecond))
	if stats.Peak > 1 {
		log.Printf("warning: output clipped, peak %.3f", stats.Peak)
	}
	return nil
}

// ---------------------------------------------------------------------------
// play
// ---------------------------------------------------------------------------

func runPlay(app *App, args []string) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	app.audioFlags(fs)
	midiPath := fs.String("midi", "", "raw MIDI device to read notes from, e.g. /dev/snd/midiC1D0")
	fs.Parse(args)

	path, err := patchArg(fs)
	if err != nil {
		return err
	}

	sess := session.New(app.sampleRate, app.blockSize,
		session.WithSeed(app.seed), session.WithEngine(app.engine))
	load := func() error {
		source, err := ReadPatch(path)
		if err != nil {
			return err
		}
		if err := loadInto(sess, source); err != nil {
			return err
		}
		warnings, err := sess.Commit()
		if err != nil {
			return err
		}
		for _, w := range warnings {
			log.Printf("warning: %s", w)
		}
		return nil
	}
	if err := load(); err != nil {
		return err
	}

	voice := control.NewVoice(control.DefaultFrequency)
	player, err := oto.New(int(app.sampleRate), app.blockSize, render.Live(sess, voice, app.blockSize))
	if err != nil {
		return err
	}
	defer func() {
		if err := player.Close(); err != nil {
			log.Printf("%v", err)
		}
	}()
	player.Start()

	if *midiPath != "" {
		f, err := os.Open(*midiPath)
		if err != nil {
			return fmt.Errorf("open MIDI device: %w", err)
		}
		defer f.Close()
		go func() {
			err := control.ReadMIDI(f, func(msg midi.Message) { voice.HandleMIDI(msg) })
			if err != nil && !errors.Is(err, os.ErrClosed) {
				log.Printf("midi: %v", err)
			}
		}()
		log.Printf("reading notes from %s", *midiPath)
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		// No keyboard: play MIDI until interrupted.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()
		return nil
	}

	old, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("keyboard: %w", err)
	}
	defer term.Restore(fd, old)
	log.SetOutput(crlfWriter{os.Stderr})
	defer log.SetOutput(os.Stderr)

	log.Printf("playing %s: keys %s play, space releases, z/x octave, r reloads, q quits", path, pianoKeys)
	return playKeys(os.Stdin, newKeyboard(), voice, load)
}

// loadInto replaces the session graph with the patch in source.
func loadInto(sess *session.Session, source []byte) error {
	if isJSON(source) {
		return sess.LoadJSON(bytes.NewReader(source))
	}
	evalErrs, err := sess.LoadSource(string(source))
	if err != nil {
		return err
	}
	if len(evalErrs) > 0 {
		msgs := make([]string, len(evalErrs))
		for i, e := range evalErrs {
			msgs[i] = e.Error()
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return nil
}

// playKeys feeds key presses from r into voice until quit or EOF. A failed
// reload is reported and the previous instrument keeps playing.
func playKeys(r io.Reader, kb *keyboard, voice *control.Voice, reload func() error) error {
	buf := make([]byte, 1)
	for {
		if _, err := r.Read(buf); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		action, key := kb.press(buf[0])
		switch action {
		case actionQuit:
			return nil
		case actionNoteOn:
			voice.NoteOn(key)
		case actionNoteOff:
			voice.NoteOff(key)
		case actionOctave:
			log.Printf("octave %d", kb.octave)
		case actionReload:
			if err := reload(); err != nil {
				log.Printf("reload: %v", err)
				continue
			}
			log.Printf("reloaded")
		}
	}
}

// crlfWriter terminates lines with CRLF for a terminal in raw mode.
type crlfWriter struct{ w io.Writer }

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}

// ---------------------------------------------------------------------------
// check
// ---------------------------------------------------------------------------

func runCheck(app *App, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	app.audioFlags(fs)
	asJSON := fs.Bool("json", false, "print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	path, err := patchArg(fs)
	if err != nil {
		return err
	}
	source, err := ReadPatch(path)
	if err != nil {
		return err
	}

	result := app.Check(source)
	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		for _, e := range result.Errors {
			fmt.Fprintf(stdout, "%s: error: %s\n", path, formatProblem(e))
		}
		for _, w := range result.Warnings {
			fmt.Fprintf(stdout, "%s: warning: %s\n", path, formatProblem(w))
		}
		if result.OK() {
			fmt.Fprintf(stdout, "%s: ok, %d nodes, %d patches, order %v\n",
				path, result.Nodes, result.Patches, result.Order)
		}
	}

	if !result.OK() {
		return errCheckFailed
	}
	return nil
}

// ---------------------------------------------------------------------------
// describe
// ---------------------------------------------------------------------------

func runDescribe(args []string, stdout io.Writer) error {
	kinds := graph.Kinds()
	if len(args) > 0 {
		kinds = kinds[:0:0]
		for _, name := range args {
			k, err := graph.ParseKind(name)
			if err != nil {
				return err
			}
			kinds = append(kinds, k)
		}
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for _, k := range kinds {
		d := graph.Describe(k)
		fmt.Fprintf(tw, "%s\tinputs: %s\toutputs: %s\n",
			k, strings.Join(d.Inputs, ", "), strings.Join(d.Outputs, ", "))
		for _, knob := range d.Knobs {
			var notes []string
			if knob.Logarithmic {
				notes = append(notes, "log")
			}
			if knob.Integral {
				notes = append(notes, "integral")
			}
			line := fmt.Sprintf("  %s\t[%g, %g]\tdefault %g", knob.Label, knob.Lower, knob.Upper, knob.Default)
			if len(notes) > 0 {
				line += "\t" + strings.Join(notes, ", ")
			}
			fmt.Fprintln(tw, line)
		}
	}
	return tw.Flush()
}
