package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/vk/rnaflow/internal/nodeid"
)

// Defaults applied by New to unset fields.
const (
	DefaultPValue      = 0.05
	DefaultMinCoverage = 5
	DefaultMinLength   = 50
	DefaultFeatureType = "gene"
)

// ReadPair is one sequencing library of a sample. R2 is empty for
// single-end data.
type ReadPair struct {
	R1 string `yaml:"r1"`
	R2 string `yaml:"r2,omitempty"`
}

// Paired reports whether the pair has a mate file.
func (p ReadPair) Paired() bool { return p.R2 != "" }

// Sample is a named set of read pairs.
type Sample struct {
	Name  string     `yaml:"name"`
	Reads []ReadPair `yaml:"reads"`
}

// Publish describes an S3-compatible upload target.
type Publish struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// Spec is the mutable input to New. Loaders fill it in.
type Spec struct {
	Samples      []Sample
	FASTA        string
	GFF          string
	CPUs         int
	Workdir      string
	Aligner      Aligner
	Kingdom      Kingdom
	Scheduler    SchedulerMode
	SchedulerURL string
	Jobs         int
	ExpDesign    string
	PValue       float64
	OrgCode      string
	HisatIndex   string
	StarDBDir    string
	BinPaths     []string
	FeatureTypes []string
	QC           bool
	MinCoverage  int
	MinLength    int
	Publish      *Publish
}

// RunConfig is a validated, immutable run configuration.
type RunConfig struct {
	s Spec
}

// New applies defaults to spec, validates it and freezes the result.
func New(spec Spec) (RunConfig, error) {
	s := clone(spec)

	if s.CPUs == 0 {
		s.CPUs = 1
	}
	if s.Jobs == 0 {
		s.Jobs = 1
	}
	if s.PValue == 0 {
		s.PValue = DefaultPValue
	}
	if s.MinCoverage == 0 {
		s.MinCoverage = DefaultMinCoverage
	}
	if s.MinLength == 0 {
		s.MinLength = DefaultMinLength
	}
	if len(s.FeatureTypes) == 0 {
		s.FeatureTypes = []string{DefaultFeatureType}
	}

	if err := validate(&s); err != nil {
		return RunConfig{}, fmt.Errorf("invalid run configuration: %w", err)
	}
	return RunConfig{s: s}, nil
}

func validate(s *Spec) error {
	var errs []error
	if s.Workdir == "" {
		errs = append(errs, errors.New("workdir is required"))
	}
	if s.FASTA == "" {
		errs = append(errs, errors.New("reference fasta is required"))
	}
	if s.GFF == "" {
		errs = append(errs, errors.New("reference gff is required"))
	}
	if len(s.Samples) == 0 {
		errs = append(errs, errors.New("at least one sample is required"))
	}
	seen := make(map[string]bool)
	for _, smp := range s.Samples {
		switch {
		case !nodeid.ValidSegment(smp.Name):
			errs = append(errs, fmt.Errorf("sample name %q may only contain letters, digits, '_' and '-'", smp.Name))
		case seen[smp.Name]:
			errs = append(errs, fmt.Errorf("duplicate sample %q", smp.Name))
		}
		seen[smp.Name] = true
		if len(smp.Reads) == 0 {
			errs = append(errs, fmt.Errorf("sample %q has no reads", smp.Name))
		}
		for i, rp := range smp.Reads {
			if rp.R1 == "" {
				errs = append(errs, fmt.Errorf("sample %q read pair %d has no r1", smp.Name, i))
			}
		}
	}
	if s.CPUs < 1 {
		errs = append(errs, fmt.Errorf("num_cpus must be at least 1, got %d", s.CPUs))
	}
	if s.Jobs < 1 {
		errs = append(errs, fmt.Errorf("jobs must be at least 1, got %d", s.Jobs))
	}
	if s.PValue <= 0 || s.PValue > 1 {
		errs = append(errs, fmt.Errorf("p_value must be in (0, 1], got %g", s.PValue))
	}
	if s.MinCoverage < 1 || s.MinLength < 1 {
		errs = append(errs, errors.New("min_coverage and min_length must be positive"))
	}
	switch s.Aligner {
	case AlignerHISAT2:
		if s.HisatIndex == "" {
			errs = append(errs, errors.New("hisat_index is required when aligner is HISAT2"))
		}
	case AlignerSTAR:
		if s.StarDBDir == "" {
			errs = append(errs, errors.New("star_db_dir is required when aligner is STAR"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown aligner %v", s.Aligner))
	}
	if s.Kingdom < KingdomProkarya || s.Kingdom > KingdomBoth {
		errs = append(errs, fmt.Errorf("unknown kingdom %v", s.Kingdom))
	}
	if s.Scheduler == SchedulerDistributed && s.SchedulerURL == "" {
		errs = append(errs, errors.New("scheduler url is required in distributed mode"))
	}
	if p := s.Publish; p != nil && (p.Endpoint == "" || p.Bucket == "") {
		errs = append(errs, errors.New("publish requires endpoint and bucket"))
	}
	return errors.Join(errs...)
}

func clone(s Spec) Spec {
	out := s
	out.Samples = make([]Sample, len(s.Samples))
	for i, smp := range s.Samples {
		out.Samples[i] = Sample{Name: smp.Name, Reads: append([]ReadPair(nil), smp.Reads...)}
	}
	out.BinPaths = append([]string(nil), s.BinPaths...)
	out.FeatureTypes = append([]string(nil), s.FeatureTypes...)
	if s.Publish != nil {
		p := *s.Publish
		out.Publish = &p
	}
	return out
}

// Spec returns a copy of the validated values.
func (c RunConfig) Spec() Spec { return clone(c.s) }

// Samples returns the samples in configuration order.
func (c RunConfig) Samples() []Sample { return clone(c.s).Samples }

// SampleNames returns the sample names in configuration order.
func (c RunConfig) SampleNames() []string {
	names := make([]string, len(c.s.Samples))
	for i, smp := range c.s.Samples {
		names[i] = smp.Name
	}
	return names
}

func (c RunConfig) FASTA() string            { return c.s.FASTA }
func (c RunConfig) GFF() string              { return c.s.GFF }
func (c RunConfig) CPUs() int                { return c.s.CPUs }
func (c RunConfig) Workdir() string          { return c.s.Workdir }
func (c RunConfig) Aligner() Aligner         { return c.s.Aligner }
func (c RunConfig) Kingdom() Kingdom         { return c.s.Kingdom }
func (c RunConfig) Scheduler() SchedulerMode { return c.s.Scheduler }
func (c RunConfig) Jobs() int                { return c.s.Jobs }
func (c RunConfig) ExpDesign() string        { return c.s.ExpDesign }
func (c RunConfig) PValue() float64          { return c.s.PValue }
func (c RunConfig) OrgCode() string          { return c.s.OrgCode }
func (c RunConfig) HisatIndex() string       { return c.s.HisatIndex }
func (c RunConfig) StarDBDir() string        { return c.s.StarDBDir }
func (c RunConfig) QC() bool                 { return c.s.QC }
func (c RunConfig) MinCoverage() int         { return c.s.MinCoverage }
func (c RunConfig) MinLength() int           { return c.s.MinLength }
func (c RunConfig) BinPaths() []string       { return append([]string(nil), c.s.BinPaths...) }
func (c RunConfig) FeatureTypes() []string   { return append([]string(nil), c.s.FeatureTypes...) }
func (c RunConfig) HasExpDesign() bool       { return c.s.ExpDesign != "" }

// SchedulerURL returns the central scheduler URL, or "" in local mode.
func (c RunConfig) SchedulerURL() string {
	if c.s.Scheduler != SchedulerDistributed {
		return ""
	}
	return c.s.SchedulerURL
}

// Publish returns the upload target, or nil when publishing is disabled.
func (c RunConfig) Publish() *Publish {
	if c.s.Publish == nil {
		return nil
	}
	p := *c.s.Publish
	return &p
}

// Derived paths under the work directory.

func (c RunConfig) ProcessesDir() string { return filepath.Join(c.s.Workdir, "processes") }
func (c RunConfig) QCDir() string        { return filepath.Join(c.ProcessesDir(), "qc") }
func (c RunConfig) MapDir() string       { return filepath.Join(c.ProcessesDir(), "mapping") }
func (c RunConfig) NovelDir() string     { return filepath.Join(c.ProcessesDir(), "novel") }
func (c RunConfig) FeatureCountDir() string {
	return filepath.Join(c.ProcessesDir(), "featureCounts")
}
func (c RunConfig) StringTieDir() string { return filepath.Join(c.ProcessesDir(), "stringtie") }

// DGEDir returns the output directory of a differential expression method.
func (c RunConfig) DGEDir(method string) string { return filepath.Join(c.ProcessesDir(), method) }

// MapSummaryPath is the per-sample mapping statistics table.
func (c RunConfig) MapSummaryPath() string { return filepath.Join(c.s.Workdir, "MapSummary.tsv") }

// UpdatedGFF is the annotation merged with novel regions.
func (c RunConfig) UpdatedGFF() string { return filepath.Join(c.s.Workdir, "updated.gff") }

// ManifestPath is where the run manifest is written.
func (c RunConfig) ManifestPath() string { return filepath.Join(c.s.Workdir, "run_manifest.yaml") }

// AlignmentPath is the coordinate-sorted BAM produced for sample by the
// configured aligner.
func (c RunConfig) AlignmentPath(sample string) string {
	if c.s.Aligner == AlignerSTAR {
		return filepath.Join(c.MapDir(), sample+"_Aligned.sortedByCoord.out.bam")
	}
	return filepath.Join(c.MapDir(), sample+".bam")
}
