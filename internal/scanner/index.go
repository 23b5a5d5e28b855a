package scanner

import (
	"os"
	"strings"
)

// IndexRule rewrites a data file suffix into the suffixes of its index files.
type IndexRule struct {
	Data    string
	Indexes []string
}

// DefaultIndexRules pair alignment and variant formats with their indexes.
// ".bam" yields both "x.bam.bai" and "x.bai".
var DefaultIndexRules = []IndexRule{
	{Data: ".bam", Indexes: []string{".bam.bai", ".bai"}},
	{Data: ".cram", Indexes: []string{".cram.crai", ".crai"}},
	{Data: ".vcf.gz", Indexes: []string{".vcf.gz.tbi", ".vcf.gz.csi"}},
	{Data: ".bcf", Indexes: []string{".bcf.csi"}},
}

// IndexPaths returns every index path the rules allow for dataPath,
// whether or not the files exist.
func IndexPaths(dataPath string, rules []IndexRule) []string {
	lower := strings.ToLower(dataPath)
	var out []string
	for _, r := range rules {
		if !strings.HasSuffix(lower, r.Data) {
			continue
		}
		stem := dataPath[:len(dataPath)-len(r.Data)]
		for _, idx := range r.Indexes {
			out = append(out, stem+idx)
		}
	}
	return out
}

// IsDataFile reports whether some rule pairs indexes with p.
func IsDataFile(p string, rules []IndexRule) bool {
	lower := strings.ToLower(p)
	for _, r := range rules {
		if strings.HasSuffix(lower, r.Data) {
			return true
		}
	}
	return false
}

type indexFile struct {
	path string
	info os.FileInfo
}

// existingIndexes keeps the regular, non-symlink files among IndexPaths.
func existingIndexes(dataPath string, rules []IndexRule) []indexFile {
	var out []indexFile
	for _, p := range IndexPaths(dataPath, rules) {
		fi, err := os.Lstat(p)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		out = append(out, indexFile{path: p, info: fi})
	}
	return out
}
