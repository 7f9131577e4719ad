// Package schema holds the gohcl decoding targets for rnaflow run files.
package schema

// Reference is the `reference` block.
type Reference struct {
	FASTA string `hcl:"fasta"`
	GFF   string `hcl:"gff"`
}

// Reads is one `reads` block inside a sample.
type Reads struct {
	R1 string `hcl:"r1"`
	R2 string `hcl:"r2,optional"`
}

// Sample is a `sample "<name>"` block.
type Sample struct {
	Name  string   `hcl:"name,label"`
	Reads []*Reads `hcl:"reads,block"`
}

// Scheduler is the `scheduler` block.
type Scheduler struct {
	Mode string `hcl:"mode,optional"`
	URL  string `hcl:"url,optional"`
}

// Publish is the `publish` block.
type Publish struct {
	Endpoint  string `hcl:"endpoint"`
	Bucket    string `hcl:"bucket"`
	Prefix    string `hcl:"prefix,optional"`
	AccessKey string `hcl:"access_key,optional"`
	SecretKey string `hcl:"secret_key,optional"`
	UseSSL    bool   `hcl:"use_ssl,optional"`
	Region    string `hcl:"region,optional"`
}

// RunFile is the top level of a run file.
type RunFile struct {
	Workdir      string   `hcl:"workdir"`
	Aligner      string   `hcl:"aligner"`
	Kingdom      string   `hcl:"kingdom"`
	NumCPUs      int      `hcl:"num_cpus,optional"`
	Jobs         int      `hcl:"jobs,optional"`
	PValue       float64  `hcl:"p_value,optional"`
	OrgCode      string   `hcl:"org_code,optional"`
	ExpDesign    string   `hcl:"exp_design,optional"`
	HisatIndex   string   `hcl:"hisat_index,optional"`
	StarDBDir    string   `hcl:"star_db_dir,optional"`
	BinPaths     []string `hcl:"bin_paths,optional"`
	FeatureTypes []string `hcl:"feature_types,optional"`
	QC           bool     `hcl:"qc,optional"`
	MinCoverage  int      `hcl:"min_coverage,optional"`
	MinLength    int      `hcl:"min_length,optional"`
	// FastqDir discovers samples from <name>_R1.fastq[.gz] files.
	FastqDir string `hcl:"fastq_dir,optional"`

	Reference *Reference `hcl:"reference,block"`
	Scheduler *Scheduler `hcl:"scheduler,block"`
	Samples   []*Sample  `hcl:"sample,block"`
	Publish   *Publish   `hcl:"publish,block"`
}
