package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/rnaflow/internal/config"
	"github.com/vk/rnaflow/internal/ctxlog"
	"github.com/vk/rnaflow/internal/fsutil"
	"github.com/vk/rnaflow/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct {
	// Environ supplies the env object. Defaults to os.Environ.
	Environ func() []string
}

// NewLoader creates a new HCL run file loader.
func NewLoader() *Loader {
	return &Loader{Environ: os.Environ}
}

// Load parses, decodes and validates the run file at path.
func (l *Loader) Load(ctx context.Context, path string) (config.RunConfig, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	abs, err := filepath.Abs(path)
	if err != nil {
		return config.RunConfig{}, fmt.Errorf("failed to resolve run file path %s: %w", path, err)
	}
	baseDir := filepath.Dir(abs)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(abs)
	if diags.HasErrors() {
		return config.RunConfig{}, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var root schema.RunFile
	diags = gohcl.DecodeBody(file.Body, l.evalContext(baseDir), &root)
	if diags.HasErrors() {
		return config.RunConfig{}, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	spec, err := translate(&root, baseDir)
	if err != nil {
		return config.RunConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg, err := config.New(spec)
	if err != nil {
		return config.RunConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug("Run file loaded.", "path", path, "samples", len(spec.Samples), "aligner", spec.Aligner, "kingdom", spec.Kingdom)
	return cfg, nil
}

func (l *Loader) evalContext(baseDir string) *hcl.EvalContext {
	environ := l.Environ
	if environ == nil {
		environ = os.Environ
	}
	env := make(map[string]cty.Value)
	for _, kv := range environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env":        cty.ObjectVal(env),
			"config_dir": cty.StringVal(baseDir),
		},
	}
}

func translate(root *schema.RunFile, baseDir string) (config.Spec, error) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	aligner, err := config.ParseAligner(root.Aligner)
	if err != nil {
		return config.Spec{}, err
	}
	kingdom, err := config.ParseKingdom(root.Kingdom)
	if err != nil {
		return config.Spec{}, err
	}

	spec := config.Spec{
		Workdir:      resolve(root.Workdir),
		Aligner:      aligner,
		Kingdom:      kingdom,
		CPUs:         root.NumCPUs,
		Jobs:         root.Jobs,
		PValue:       root.PValue,
		OrgCode:      root.OrgCode,
		ExpDesign:    resolve(root.ExpDesign),
		HisatIndex:   resolve(root.HisatIndex),
		StarDBDir:    resolve(root.StarDBDir),
		FeatureTypes: root.FeatureTypes,
		QC:           root.QC,
		MinCoverage:  root.MinCoverage,
		MinLength:    root.MinLength,
	}
	for _, p := range root.BinPaths {
		spec.BinPaths = append(spec.BinPaths, resolve(p))
	}
	if root.Reference != nil {
		spec.FASTA = resolve(root.Reference.FASTA)
		spec.GFF = resolve(root.Reference.GFF)
	}
	if root.Scheduler != nil {
		mode, err := config.ParseSchedulerMode(root.Scheduler.Mode)
		if err != nil {
			return config.Spec{}, err
		}
		spec.Scheduler = mode
		spec.SchedulerURL = root.Scheduler.URL
	}
	if p := root.Publish; p != nil {
		spec.Publish = &config.Publish{
			Endpoint:  p.Endpoint,
			Bucket:    p.Bucket,
			Prefix:    p.Prefix,
			AccessKey: p.AccessKey,
			SecretKey: p.SecretKey,
			UseSSL:    p.UseSSL,
			Region:    p.Region,
		}
	}

	for _, s := range root.Samples {
		smp := config.Sample{Name: s.Name}
		for _, r := range s.Reads {
			smp.Reads = append(smp.Reads, config.ReadPair{R1: resolve(r.R1), R2: resolve(r.R2)})
		}
		spec.Samples = append(spec.Samples, smp)
	}
	if root.FastqDir != "" {
		found, err := discoverSamples(resolve(root.FastqDir))
		if err != nil {
			return config.Spec{}, err
		}
		spec.Samples = append(spec.Samples, found...)
	}
	return spec, nil
}

// discoverSamples pairs <name>_R1.fastq[.gz] with a sibling _R2 file.
func discoverSamples(dir string) ([]config.Sample, error) {
	files, err := fsutil.FindFilesBySuffix(dir, "_R1.fastq", "_R1.fastq.gz")
	if err != nil {
		return nil, fmt.Errorf("error discovering reads in %s: %w", dir, err)
	}

	var samples []config.Sample
	for _, r1 := range files {
		base := filepath.Base(r1)
		i := strings.LastIndex(base, "_R1.fastq")
		name := base[:i]
		pair := config.ReadPair{R1: r1}
		r2 := filepath.Join(filepath.Dir(r1), name+"_R2"+base[i+len("_R1"):])
		if fsutil.Exists(r2) {
			pair.R2 = r2
		}
		samples = append(samples, config.Sample{Name: name, Reads: []config.ReadPair{pair}})
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Name < samples[j].Name })
	return samples, nil
}
