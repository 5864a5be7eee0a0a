// Urlhash computes portable URL fingerprints and manages set files of them.
//
// Usage:
//
//	urlhash [flags] URL...               hash URLs (or read them from stdin)
//	urlhash -build seen.uhs < urls.txt   build a set file from a URL list
//	urlhash -contains seen.uhs URL...    probe a set file
//
// Flags:
//
//	-short       print the 16-byte short form
//	-very-short  print the 8-byte very-short form
//	-canonical   print the canonical form instead of a hash
//	-build       write a set file from URLs read on stdin
//	-contains    probe the given set file for each URL argument
//	-workers     parallel hashing goroutines for -build (default: GOMAXPROCS)
//	-bloom       bloom bits per key for -build, 0 to disable (default: 10)
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"runtime"

	"github.com/tamirms/urlhash"
)

func main() {
	shortFlag := flag.Bool("short", false, "print the 16-byte short form")
	veryShortFlag := flag.Bool("very-short", false, "print the 8-byte very-short form")
	canonicalFlag := flag.Bool("canonical", false, "print the canonical form instead of a hash")
	buildFlag := flag.String("build", "", "write a set file from URLs read on stdin")
	containsFlag := flag.String("contains", "", "probe the given set file for each URL argument")
	workersFlag := flag.Int("workers", runtime.GOMAXPROCS(0), "parallel hashing goroutines for -build")
	bloomFlag := flag.Int("bloom", 10, "bloom bits per key for -build (0 disables)")
	flag.Parse()

	switch {
	case *buildFlag != "":
		if err := runBuild(*buildFlag, *workersFlag, *bloomFlag); err != nil {
			fail(err)
		}
	case *containsFlag != "":
		missing, err := runContains(*containsFlag, flag.Args())
		if err != nil {
			fail(err)
		}
		if missing > 0 {
			os.Exit(1)
		}
	default:
		if err := runHash(flag.Args(), *shortFlag, *veryShortFlag, *canonicalFlag); err != nil {
			fail(err)
		}
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "urlhash: %v\n", err)
	os.Exit(1)
}

// runHash prints one line per URL: the requested rendering, then the input.
func runHash(args []string, short, veryShort, canonical bool) error {
	urls, err := collectURLs(args)
	if err != nil {
		return err
	}
	for _, u := range urls {
		c, err := urlhash.Canonicalize(u)
		if err != nil {
			return fmt.Errorf("%s: %w", u, err)
		}
		if canonical {
			fmt.Println(c)
			continue
		}
		h := urlhash.Sum([]byte(c))
		switch {
		case veryShort:
			fmt.Printf("%s  %s\n", h.VeryShort(), u)
		case short:
			fmt.Printf("%s  %s\n", h.Short(), u)
		default:
			fmt.Printf("%s  %s\n", h, u)
		}
	}
	return nil
}

// runBuild reads URLs from stdin, hashes them in parallel, and writes a set file.
func runBuild(path string, workers, bloomBits int) error {
	urls, err := collectURLs(nil)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs on stdin")
	}

	ctx := context.Background()
	hashes, err := urlhash.HashAll(ctx, urls, workers)
	if err != nil {
		return err
	}

	builder, err := urlhash.NewSetBuilder(ctx, path, urlhash.WithBloomBitsPerKey(bloomBits))
	if err != nil {
		return err
	}
	for _, h := range hashes {
		if err := builder.Add(h); err != nil {
			return err
		}
	}
	if err := builder.Finish(); err != nil {
		return err
	}

	set, err := urlhash.Open(path)
	if err != nil {
		return err
	}
	defer set.Close()
	stats, err := set.Stats()
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s: %d hashes, %d bloom bytes, %d bytes total\n",
		path, stats.NumHashes, stats.BloomBytes, stats.FileSize)
	return nil
}

// runContains probes the set for each URL argument, reports per line, and
// returns how many were absent so main can set the exit code after the
// deferred Close has run.
func runContains(path string, args []string) (int, error) {
	urls, err := collectURLs(args)
	if err != nil {
		return 0, err
	}

	set, err := urlhash.Open(path)
	if err != nil {
		return 0, err
	}
	defer set.Close()
	if err := set.Verify(); err != nil {
		return 0, err
	}

	missing := 0
	for _, u := range urls {
		h, err := urlhash.New(u)
		if err != nil {
			return missing, fmt.Errorf("%s: %w", u, err)
		}
		ok, err := set.Contains(h)
		if err != nil {
			return missing, err
		}
		if ok {
			fmt.Printf("present  %s\n", u)
		} else {
			missing++
			fmt.Printf("absent   %s\n", u)
		}
	}
	return missing, nil
}

// collectURLs parses args as URLs, or reads one URL per line from stdin
// when args is empty. Blank lines are skipped.
func collectURLs(args []string) ([]*url.URL, error) {
	var urls []*url.URL
	if len(args) > 0 {
		for _, arg := range args {
			u, err := url.Parse(arg)
			if err != nil {
				return nil, fmt.Errorf("parse %q: %w", arg, err)
			}
			urls = append(urls, u)
		}
		return urls, nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		u, err := url.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", line, err)
		}
		urls = append(urls, u)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return urls, nil
}
