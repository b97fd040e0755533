// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

// csearch behaves like grep over every file recorded in a trigram
// index: it narrows the candidate file set with the index's boolean
// set algebra before ever opening a file, then runs a regular
// expression over just those candidates to produce real matches.
//
// Narrowing is deliberately simple: csearch does not compile a regexp
// into a full trigram query plan (AND/OR over every required
// substring the expression implies). Instead it looks for the longest
// literal run in the pattern and, if one is at least three bytes,
// ANDs together the posting lists of its distinct trigrams. Anything
// without a long literal run — or the -brute flag — falls back to
// scanning every indexed file.

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"runtime/pprof"
	"sort"

	"github.com/trigrex/trix/index"
)

var usageMessage = `usage: csearch [-c] [-f fileregexp] [-i] [-l] [-n] [-index path] regexp

csearch behaves like grep over all indexed files, searching for regexp,
a Go (RE2) regular expression.

The -c, -i, -l, and -n flags are as in grep, although note that as per
Go's flag parsing convention, they cannot be combined: the option pair
-i -n cannot be abbreviated to -in.

The -f flag restricts the search to files whose names match the
regular expression fileregexp.

csearch relies on the existence of an up-to-date index created ahead of
time. To build or rebuild the index that csearch uses, run:

	cindex path...

where path... is a list of directories or individual files to be
included in the index. If no index exists, this command creates one.
If an index already exists, cindex updates it. Run cindex -help for
more.

The path to the index is named by the -index flag or $CSEARCHINDEX
variable. If both are empty, the current working directory and parents
are recursively searched for a .csearchindex file. If none is found, an
index is created at ~/.csearchindex.
`

func usage() {
	fmt.Fprint(os.Stderr, usageMessage)
	os.Exit(2)
}

var (
	fFlag       = flag.String("f", "", "search only files with names matching this regexp")
	iFlag       = flag.Bool("i", false, "case-insensitive search")
	lFlag       = flag.Bool("l", false, "list only the names of files with a match")
	nFlag       = flag.Bool("n", false, "print each match's line number")
	cFlag       = flag.Bool("c", false, "print only a count of matching lines per file")
	indexFlag   = flag.String("index", "", "path to the index")
	verboseFlag = flag.Bool("verbose", false, "print extra information")
	bruteFlag   = flag.Bool("brute", false, "brute force: search every indexed file")
	cpuProfile  = flag.String("cpuprofile", "", "write cpu profile to this file")
)

func main() {
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) != 1 {
		usage()
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	pattern := args[0]
	if *iFlag {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		log.Fatal(err)
	}
	var fre *regexp.Regexp
	if *fFlag != "" {
		fre, err = regexp.Compile(*fFlag)
		if err != nil {
			log.Fatal(err)
		}
	}

	indexPath := *indexFlag
	if indexPath == "" {
		indexPath = index.File()
	}
	ix, err := index.Open(indexPath)
	if err != nil {
		log.Fatal(err)
	}

	var post []uint32
	if *bruteFlag {
		post = allFileIDs(ix)
	} else {
		post, err = candidateFiles(ix, pattern)
		if err != nil {
			log.Fatal(err)
		}
	}
	if *verboseFlag {
		log.Printf("candidate files: %d of %d\n", len(post), ix.NumNames())
	}

	g := &grep{re: re, c: *cFlag, l: *lFlag, n: *nFlag}
	for _, fileID := range post {
		name, err := ix.Name(fileID)
		if err != nil {
			log.Fatal(err)
		}
		if fre != nil && !fre.MatchString(name) {
			continue
		}
		g.file(name)
	}

	if !g.match {
		os.Exit(1)
	}
}

// candidateFiles narrows the search to files that must contain the
// longest literal substring found in pattern, by ANDing together the
// posting lists of its overlapping trigrams. If no literal run of at
// least three bytes can be extracted, every indexed file is returned.
func candidateFiles(ix *index.Index, pattern string) ([]uint32, error) {
	lit := longestLiteral(pattern)
	trigrams := distinctTrigrams(lit)
	if len(trigrams) == 0 {
		return allFileIDs(ix), nil
	}
	sort.Slice(trigrams, func(i, j int) bool { return trigrams[i] < trigrams[j] })

	list, err := ix.List(trigrams[0], nil)
	if err != nil {
		return nil, err
	}
	for _, t := range trigrams[1:] {
		list, err = ix.And(list, t, nil)
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			break
		}
	}
	return list, nil
}

func allFileIDs(ix *index.Index) []uint32 {
	n := ix.NumNames()
	ids := make([]uint32, n)
	for i := range ids {
		ids[i] = uint32(i)
	}
	return ids
}

// longestLiteral returns the longest run of bytes in pattern that
// contains no regexp metacharacter, a cheap stand-in for compiling
// the pattern into its required literal substrings.
func longestLiteral(pattern string) string {
	const meta = `\.+*?()|[]{}^$`
	best, cur := "", ""
	isMeta := func(b byte) bool {
		for i := 0; i < len(meta); i++ {
			if meta[i] == b {
				return true
			}
		}
		return false
	}
	flush := func() {
		if len(cur) > len(best) {
			best = cur
		}
		cur = ""
	}
	i := 0
	for i < len(pattern) {
		b := pattern[i]
		if b == '(' && i+2 < len(pattern) && pattern[i+1] == '?' {
			// Skip flag groups such as (?i) entirely; they carry no
			// literal content and would otherwise split cur in two.
			j := i + 2
			for j < len(pattern) && pattern[j] != ')' {
				j++
			}
			flush()
			i = j + 1
			continue
		}
		if isMeta(b) {
			flush()
			i++
			continue
		}
		cur += string(b)
		i++
	}
	flush()
	return best
}

func distinctTrigrams(s string) []uint32 {
	seen := make(map[uint32]bool)
	var out []uint32
	for i := 0; i+3 <= len(s); i++ {
		t := uint32(s[i])<<16 | uint32(s[i+1])<<8 | uint32(s[i+2])
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// grep runs re over a sequence of named files, printing matches in
// the style of the grep -n/-c/-l flags.
type grep struct {
	re    *regexp.Regexp
	c     bool
	l     bool
	n     bool
	match bool
}

func (g *grep) file(name string) {
	f, err := os.Open(name)
	if err != nil {
		log.Print(err)
		return
	}
	defer f.Close()

	var count int
	lineno := 0
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 64*1024), 1<<20)
	for s.Scan() {
		lineno++
		if !g.re.MatchString(s.Text()) {
			continue
		}
		g.match = true
		count++
		if g.l {
			fmt.Println(name)
			return
		}
		if g.c {
			continue
		}
		if g.n {
			fmt.Printf("%s:%d:%s\n", name, lineno, s.Text())
		} else {
			fmt.Printf("%s:%s\n", name, s.Text())
		}
	}
	if g.c && count > 0 {
		fmt.Printf("%s:%d\n", name, count)
	}
}
