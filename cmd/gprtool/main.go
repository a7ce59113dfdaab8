package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/vearutop/gpr"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "gpr2dng":
		if err := runConvert(os.Args[2:], gpr.ConvertGPRToDNG); err != nil {
			fail(err)
		}
	case "dng2gpr":
		if err := runConvert(os.Args[2:], gpr.ConvertDNGToGPR); err != nil {
			fail(err)
		}
	case "gpr2raw":
		if err := runConvert(os.Args[2:], gpr.ConvertGPRToRAW); err != nil {
			fail(err)
		}
	case "dng2dng":
		if err := runConvert(os.Args[2:], gpr.ConvertDNGToDNG); err != nil {
			fail(err)
		}
	case "info":
		if err := runInfo(os.Args[2:]); err != nil {
			fail(err)
		}
	case "exif":
		if err := runExif(os.Args[2:]); err != nil {
			fail(err)
		}
	case "meta":
		if err := runMeta(os.Args[2:]); err != nil {
			fail(err)
		}
	case "modify":
		if err := runModify(os.Args[2:]); err != nil {
			fail(err)
		}
	case "preview":
		if err := runPreview(os.Args[2:]); err != nil {
			fail(err)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: gprtool <command> [args]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  gpr2dng -in input.gpr -out output.dng")
	fmt.Fprintln(os.Stderr, "  dng2gpr -in input.dng -out output.gpr")
	fmt.Fprintln(os.Stderr, "  gpr2raw -in input.gpr -out output.raw")
	fmt.Fprintln(os.Stderr, "  dng2dng -in input.dng -out output.dng")
	fmt.Fprintln(os.Stderr, "  info    -in input.gpr")
	fmt.Fprintln(os.Stderr, "  exif    -in input.gpr [-zero-missing]")
	fmt.Fprintln(os.Stderr, "  meta    -in input.gpr")
	fmt.Fprintln(os.Stderr, "  modify  -in input.dng -out output.dng -updates updates.json")
	fmt.Fprintln(os.Stderr, "         (or) modify -in input.dng -out output.dng -set '{\"camera_make\":\"...\"}'")
	fmt.Fprintln(os.Stderr, "  preview -in input.gpr -out thumb.jpg [-w 1024]")
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

func runConvert(args []string, convert func(in, out string) error) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	inPath := fs.String("in", "", "input file")
	outPath := fs.String("out", "", "output file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" || *outPath == "" {
		return errors.New("-in and -out are required")
	}
	return convert(*inPath, *outPath)
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	inPath := fs.String("in", "", "input file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" {
		return errors.New("-in is required")
	}
	format, err := gpr.DetectFormat(*inPath)
	if err != nil {
		return err
	}
	info, err := gpr.GetImageInfo(*inPath)
	if err != nil {
		return err
	}
	fmt.Printf("container: %s\n%s\n", format, info)
	return nil
}

func runExif(args []string) error {
	fs := flag.NewFlagSet("exif", flag.ContinueOnError)
	inPath := fs.String("in", "", "input file")
	zeroMissing := fs.Bool("zero-missing", false, "emit absent rationals as 0")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" {
		return errors.New("-in is required")
	}
	var opts []func(*gpr.ExtractOptions)
	if *zeroMissing {
		opts = append(opts, func(o *gpr.ExtractOptions) { o.ZeroMissingRationals = true })
	}
	meta, err := gpr.ExtractEXIFMetadata(*inPath, opts...)
	if err != nil {
		return err
	}
	return printJSON(meta)
}

func runMeta(args []string) error {
	fs := flag.NewFlagSet("meta", flag.ContinueOnError)
	inPath := fs.String("in", "", "input file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" {
		return errors.New("-in is required")
	}
	meta, err := gpr.ExtractGPRMetadata(*inPath)
	if err != nil {
		return err
	}
	return printJSON(meta)
}

func runModify(args []string) error {
	fs := flag.NewFlagSet("modify", flag.ContinueOnError)
	inPath := fs.String("in", "", "input file")
	outPath := fs.String("out", "", "output file")
	updatesPath := fs.String("updates", "", "JSON file with field updates")
	inline := fs.String("set", "", "inline JSON object with field updates")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" || *outPath == "" {
		return errors.New("-in and -out are required")
	}
	var raw []byte
	switch {
	case *updatesPath != "":
		data, err := os.ReadFile(*updatesPath)
		if err != nil {
			return err
		}
		raw = data
	case *inline != "":
		raw = []byte(*inline)
	default:
		return errors.New("one of -updates or -set is required")
	}
	var updates map[string]any
	if err := json.Unmarshal(raw, &updates); err != nil {
		return fmt.Errorf("parse updates: %w", err)
	}
	return gpr.ModifyMetadata(*inPath, *outPath, updates)
}

func runPreview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	inPath := fs.String("in", "", "input file")
	outPath := fs.String("out", "", "output JPEG")
	maxWidth := fs.Int("w", 0, "downscale preview to this width")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" || *outPath == "" {
		return errors.New("-in and -out are required")
	}
	return gpr.WritePreview(*inPath, *outPath, *maxWidth)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
