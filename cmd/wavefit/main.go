// Command wavefit fits reference-locked harmonics to oscilloscope captures.
//
// Usage:
//
//	wavefit [flags] capture.csv
//	wavefit [flags] -scope 192.168.1.50
//
// The capture's first channel is the reference oscillation; every further
// channel is analyzed against it. Results print as a harmonic table and can
// be exported, together with the fitted traces, as a CSV report.
//
// Examples:
//
//	wavefit -harmonics 5 capture.csv
//	wavefit -window flat-top -csv report.csv capture.csv
//	wavefit -scope 192.168.1.50 -channels 1,2
//	wavefit -spectrum capture.csv
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/klecknerlab/wavefit/capture"
	"github.com/klecknerlab/wavefit/dsp/spectrum"
	"github.com/klecknerlab/wavefit/dsp/window"
	"github.com/klecknerlab/wavefit/measure/lockin"
	"github.com/klecknerlab/wavefit/scope"
)

func main() {
	harmonics := flag.Int("harmonics", 5, "number of harmonics to extract")
	windowName := flag.String("window", "hann", "analysis window ("+strings.Join(sortedNames(), ", ")+")")
	scopeAddr := flag.String("scope", "", "acquire live from an oscilloscope at this address instead of reading a file")
	channelSpec := flag.String("channels", "1,2", "instrument channels to read (first is the reference)")
	csvOut := flag.String("csv", "", "write a CSV report with fitted traces and the harmonic table")
	noOffset := flag.Bool("no-offset", false, "start the time axis at zero instead of the trigger point")
	showSpectrum := flag.Bool("spectrum", false, "also print the strongest peaks of the reference spectrum")
	verbose := flag.Bool("v", false, "verbose diagnostics")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wavefit [flags] [capture.csv]\n\n")
		fmt.Fprintf(os.Stderr, "Fits reference-locked harmonics to an oscilloscope capture.\n")
		fmt.Fprintf(os.Stderr, "The first channel is the reference; further channels are analyzed against it.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()

	winType, err := window.ParseType(*windowName)
	if err != nil {
		logger.Fatal().Err(err).Msg("bad window name")
	}

	rec, err := loadCapture(logger, *scopeAddr, *channelSpec, *noOffset, flag.Args())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load capture")
	}

	if len(rec.Traces) < 2 {
		logger.Fatal().Int("channels", len(rec.Traces)).
			Msg("capture needs a reference channel and at least one signal channel")
	}

	if *showSpectrum {
		if err := printSpectrum(rec, winType); err != nil {
			logger.Fatal().Err(err).Msg("spectrum analysis failed")
		}
	}

	cfg := lockin.Config{Harmonics: *harmonics, WindowType: winType}

	fits := make([]*lockin.Fit, len(rec.Signals()))
	for i, sig := range rec.Signals() {
		start := time.Now()

		fit, err := lockin.Analyze(rec.Time, rec.Reference(), sig, cfg)
		if err != nil {
			logger.Fatal().Err(err).Int("channel", i+2).Msg("harmonic fit failed")
		}

		logger.Debug().
			Int("channel", i+2).
			Dur("elapsed", time.Since(start)).
			Float64("f0_hz", fit.Reference.Omega/(2*math.Pi)).
			Msg("fit complete")

		fits[i] = fit
		printFit(i, fit)
	}

	if *csvOut != "" {
		if err := writeReport(*csvOut, rec, fits); err != nil {
			logger.Fatal().Err(err).Msg("failed to write report")
		}

		logger.Debug().Str("path", *csvOut).Msg("report written")
	}
}

func loadCapture(logger zerolog.Logger, scopeAddr, channelSpec string, noOffset bool, args []string) (*capture.Capture, error) {
	if scopeAddr != "" {
		return acquire(logger, scopeAddr, channelSpec)
	}

	if len(args) != 1 {
		return nil, fmt.Errorf("expected exactly one capture file (or -scope), got %d arguments", len(args))
	}

	var opts []capture.Option
	if noOffset {
		opts = append(opts, capture.WithoutTriggerOffset())
	}

	return capture.Load(args[0], opts...)
}

func acquire(logger zerolog.Logger, addr, channelSpec string) (*capture.Capture, error) {
	channels, err := parseChannels(channelSpec)
	if err != nil {
		return nil, err
	}

	conn, err := scope.Dial(addr, 3*time.Second)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	idn, err := scope.IDN(conn)
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("idn", idn).Msg("instrument connected")

	osc, err := scope.Detect(conn)
	if err != nil {
		return nil, err
	}

	return osc.ReadChannels(channels)
}

func parseChannels(spec string) ([]int, error) {
	parts := strings.Split(spec, ",")

	out := make([]int, 0, len(parts))
	for _, p := range parts {
		ch, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || ch < 1 {
			return nil, fmt.Errorf("bad channel list %q", spec)
		}

		out = append(out, ch)
	}

	return out, nil
}

func printFit(signalIndex int, fit *lockin.Fit) {
	ref := fit.Reference

	fmt.Printf("signal %d: f0 = %s, reference amplitude %s, phase %.4f rad, residual std %s\n",
		signalIndex+1,
		humanize.SIWithDigits(ref.Omega/(2*math.Pi), 4, "Hz"),
		humanize.SIWithDigits(ref.Amplitude, 4, "V"),
		ref.Phase,
		humanize.SIWithDigits(ref.ResidualStd, 3, "V"))

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  n\tfrequency\tamplitude\tphase (rad)")

	for _, h := range fit.Harmonics {
		fmt.Fprintf(w, "  %d\t%s\t%s\t%.4f\n",
			h.Index,
			humanize.SIWithDigits(h.Omega/(2*math.Pi), 4, "Hz"),
			humanize.SIWithDigits(h.Magnitude, 4, "V"),
			h.Phase)
	}

	w.Flush()
	fmt.Println()
}

func printSpectrum(rec *capture.Capture, winType window.Type) error {
	sampleRate, err := rec.SampleRate()
	if err != nil {
		return err
	}

	bins, binHz, err := spectrum.HalfSpectrum(rec.Reference(), sampleRate, winType)
	if err != nil {
		return err
	}

	peaks := spectrum.TopPeaks(spectrum.Magnitude(bins), 5)
	if len(peaks) == 0 {
		fmt.Println("reference spectrum peaks: none")
		return nil
	}

	pow := spectrum.Power(bins)
	phase := spectrum.Phase(bins)

	fmt.Println("reference spectrum peaks:")
	for _, p := range peaks {
		fmt.Printf("  %s  %+.1f dB  phase %+.2f rad\n",
			humanize.SIWithDigits(float64(p)*binHz, 3, "Hz"),
			10*math.Log10(pow[p]/pow[peaks[0]]),
			phase[p])
	}

	fmt.Println()

	return nil
}

func writeReport(path string, rec *capture.Capture, fits []*lockin.Fit) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fitted := make([][]float64, len(rec.Traces))
	if len(fits) > 0 {
		fitted[0] = fits[0].Reference.EvalTrace(rec.Time)
	}

	for i, fit := range fits {
		fitted[i+1] = fit.Reconstruct(rec.Time)
	}

	var table *lockin.Fit
	if len(fits) > 0 {
		table = fits[0]
	}

	return capture.WriteCSV(f, rec, fitted, table)
}

func sortedNames() []string {
	names := window.Names()
	sort.Strings(names)

	return names
}
