package urlhash

// defaultBloomBitsPerKey gives roughly a 1% false positive rate with 6
// probes per key, at a cost of 1.25 bytes per stored hash.
const defaultBloomBitsPerKey = 10

// BuildOption is a functional option for configuring set builds.
type BuildOption func(*buildConfig)

type buildConfig struct {
	bloomBitsPerKey int  // 0 disables the bloom prefilter
	prefault        bool // prefault the write mapping before filling it
}

func defaultBuildConfig() *buildConfig {
	return &buildConfig{
		bloomBitsPerKey: defaultBloomBitsPerKey,
		prefault:        true,
	}
}

// WithBloomBitsPerKey configures the size of the bloom prefilter embedded
// in the set file. Zero disables the filter; every Contains call then goes
// straight to the binary search. Larger values lower the false positive
// rate (and the number of wasted searches) at the cost of file size.
func WithBloomBitsPerKey(n int) BuildOption {
	return func(c *buildConfig) {
		c.bloomBitsPerKey = n
	}
}

// WithPrefault controls prefaulting of the output mapping before writing.
// Enabled by default; disable when building many small sets where the
// madvise calls cost more than the page faults they avoid.
func WithPrefault(enabled bool) BuildOption {
	return func(c *buildConfig) {
		c.prefault = enabled
	}
}
