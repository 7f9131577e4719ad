package tasks

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/rnaflow/internal/config"
	"github.com/vk/rnaflow/internal/ctxlog"
	"github.com/vk/rnaflow/internal/launcher"
	"github.com/vk/rnaflow/internal/task"
)

func testEnv(t *testing.T, dir string, mutate func(*config.Spec)) (Env, *launcher.Recorder) {
	t.Helper()
	spec := config.Spec{
		Samples: []config.Sample{
			{Name: "migun", Reads: []config.ReadPair{{R1: "/reads/R1.fastq", R2: "/reads/R2.fastq"}}},
		},
		FASTA:      "/ref/chr22_ERCC92.fa",
		GFF:        filepath.Join(dir, "ref.gff3"),
		Workdir:    filepath.Join(dir, "work"),
		CPUs:       2,
		Aligner:    config.AlignerHISAT2,
		HisatIndex: filepath.Join(dir, "index", "ref"),
		StarDBDir:  filepath.Join(dir, "stardb"),
		Kingdom:    config.KingdomProkarya,
	}
	if mutate != nil {
		mutate(&spec)
	}
	cfg, err := config.New(spec)
	require.NoError(t, err)
	rec := launcher.NewRecorder()
	rec.Available = nil
	return Env{Cfg: cfg, Launcher: rec}, rec
}

// outputArg returns the value following flag in args.
func outputArg(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestIndex_BranchesOnAligner(t *testing.T) {
	dir := t.TempDir()
	env, _ := testEnv(t, dir, nil)
	assert.Equal(t, "hisat_index", Index(env).ID())

	env, _ = testEnv(t, dir, func(s *config.Spec) { s.Aligner = config.AlignerSTAR })
	idx := Index(env)
	assert.Equal(t, "star_index", idx.ID())
	assert.Equal(t, []string{filepath.Join(dir, "stardb", "SAindex")}, idx.Outputs())
}

func TestHisatIndex_LargeIndexIsComplete(t *testing.T) {
	dir := t.TempDir()
	env, _ := testEnv(t, dir, nil)
	prefix := env.Cfg.HisatIndex()
	assert.Equal(t, []string{prefix + ".1.ht2"}, HisatIndex(env).Outputs())

	require.NoError(t, os.MkdirAll(filepath.Dir(prefix), 0o755))
	require.NoError(t, os.WriteFile(prefix+".1.ht2l", []byte("idx"), 0o644))
	idx := HisatIndex(env)
	assert.Equal(t, []string{prefix + ".1.ht2l"}, idx.Outputs())
	assert.True(t, task.Complete(idx))
}

func TestSTARIndex_GFF3UsesParentTag(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	dir := t.TempDir()
	env, rec := testEnv(t, dir, func(s *config.Spec) { s.Aligner = config.AlignerSTAR })

	require.NoError(t, STARIndex(env).Run(ctx))
	cmds := rec.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "STAR", cmds[0].Name)
	assert.Equal(t, "genomeGenerate", outputArg(cmds[0].Args, "--runMode"))
	assert.Equal(t, "Parent", outputArg(cmds[0].Args, "--sjdbGTFtagExonParentTranscript"))
}

func TestSTARMap_Migun(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	dir := t.TempDir()
	env, rec := testEnv(t, dir, func(s *config.Spec) { s.Aligner = config.AlignerSTAR })

	smp := env.Cfg.Samples()[0]
	m := STARMap(env, smp)
	assert.Equal(t, "map_star.migun", m.ID())
	assert.Equal(t, []string{filepath.Join(dir, "work", "processes", "mapping", "migun_Aligned.sortedByCoord.out.bam")}, m.Outputs())
	require.Len(t, m.Requires(), 1)
	assert.Equal(t, "star_index", m.Requires()[0].ID())

	require.NoError(t, m.Run(ctx))
	cmd := rec.Commands()[0]
	assert.Equal(t, "STAR", cmd.Name)
	assert.Contains(t, strings.Join(cmd.Args, " "), "--readFilesIn /reads/R1.fastq /reads/R2.fastq")
	assert.Equal(t, filepath.Join(env.Cfg.MapDir(), "migun_"), outputArg(cmd.Args, "--outFileNamePrefix"))
}

func TestHisatMap_SortsAndIndexes(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	dir := t.TempDir()
	env, rec := testEnv(t, dir, nil)
	rec.OnRun = func(cmd launcher.Command) error {
		if cmd.Name == "samtools" && cmd.Args[0] == "sort" {
			return os.WriteFile(outputArg(cmd.Args, "-o"), []byte("bam"), 0o644)
		}
		return nil
	}

	m := HisatMap(env, env.Cfg.Samples()[0])
	require.NoError(t, m.Run(ctx))
	assert.True(t, task.Complete(m))
	assert.Equal(t, []string{"hisat2", "samtools", "samtools"}, rec.Names())

	hisat := rec.Commands()[0]
	assert.Equal(t, env.Cfg.HisatIndex(), outputArg(hisat.Args, "-x"))
	assert.Equal(t, "/reads/R1.fastq", outputArg(hisat.Args, "-1"))
	assert.Equal(t, "2", outputArg(hisat.Args, "-p"))
}

func TestHisatMap_FailureLeavesNoOutput(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	dir := t.TempDir()
	env, rec := testEnv(t, dir, nil)
	rec.OnRun = func(cmd launcher.Command) error {
		if cmd.Name == "hisat2" {
			return assert.AnError
		}
		return nil
	}

	m := HisatMap(env, env.Cfg.Samples()[0])
	err := m.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapping migun")
	assert.False(t, task.Complete(m))
}

func TestMappingInput_UsesTrimmedReadsWithQC(t *testing.T) {
	dir := t.TempDir()
	env, _ := testEnv(t, dir, func(s *config.Spec) { s.QC = true })

	m := HisatMap(env, env.Cfg.Samples()[0])
	var ids []string
	for _, d := range m.Requires() {
		ids = append(ids, d.ID())
	}
	assert.Equal(t, []string{"hisat_index", "faqc.migun"}, ids)

	trimmed := trimmedReads(env.Cfg, env.Cfg.Samples()[0])
	assert.Equal(t, filepath.Join(env.Cfg.QCDir(), "migun", "migun_0.1.trimmed.fastq"), trimmed[0].R1)
}

func TestFeatureCounts_AnnotationChoice(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	dir := t.TempDir()
	env, rec := testEnv(t, dir, nil)

	require.NoError(t, FeatureCounts(env, Original, "gene").Run(ctx))
	require.NoError(t, FeatureCounts(env, Updated, "gene").Run(ctx))

	cmds := rec.Commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, env.Cfg.GFF(), outputArg(cmds[0].Args, "-a"))
	assert.Equal(t, filepath.Join(dir, "work", "updated.gff"), outputArg(cmds[1].Args, "-a"))
	assert.Contains(t, cmds[0].Args, "-p")
	assert.Equal(t, CountsPath(env.Cfg, Updated, "gene"), outputArg(cmds[1].Args, "-o"))
}

func TestFeatureTypes_UpdatedAddsNovel(t *testing.T) {
	dir := t.TempDir()
	env, _ := testEnv(t, dir, nil)
	assert.Equal(t, []string{"gene"}, FeatureTypes(env.Cfg, Original))
	assert.Equal(t, []string{"gene", NovelFeatureType}, FeatureTypes(env.Cfg, Updated))

	env, _ = testEnv(t, dir, func(s *config.Spec) { s.Kingdom = config.KingdomEukarya })
	assert.Equal(t, []string{"gene"}, FeatureTypes(env.Cfg, Updated))
}

func TestCompileGFF(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	env, _ := testEnv(t, dir, nil)
	require.NoError(t, os.WriteFile(env.Cfg.GFF(), []byte(sampleGFF), 0o644))
	require.NoError(t, writeAtomic(novelPath(env.Cfg, "migun"), func(f *os.File) error {
		return WriteNovelRegions(f, []NovelRegion{{SeqID: "chr1", Start: 601, End: 700, MeanCoverage: "6.00"}})
	}))

	c := CompileGFF(env)
	require.Len(t, c.Requires(), 1)
	assert.Equal(t, "novel_regions.migun", c.Requires()[0].ID())
	require.NoError(t, c.Run(ctx))

	features, err := ReadGFFFile(env.Cfg.UpdatedGFF())
	require.NoError(t, err)
	require.Len(t, features, 4)
	assert.Equal(t, NovelFeatureType, features[3].Type)
	assert.Equal(t, 601, features[3].Start)
}

func TestCompileGFF_EukaryaCopiesReference(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	env, _ := testEnv(t, dir, func(s *config.Spec) { s.Kingdom = config.KingdomEukarya })
	require.NoError(t, os.WriteFile(env.Cfg.GFF(), []byte(sampleGFF), 0o644))

	c := CompileGFF(env)
	assert.Empty(t, c.Requires())
	require.NoError(t, c.Run(ctx))

	features, err := ReadGFFFile(env.Cfg.UpdatedGFF())
	require.NoError(t, err)
	assert.Len(t, features, 3)
}

func TestSummarizeMap(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	env, _ := testEnv(t, dir, nil)
	writeBAMFile(t, env.Cfg.AlignmentPath("migun"),
		newRecord("r1", chr1, 10, 0, match(20)),
	)

	s := SummarizeMap(env)
	assert.Equal(t, []string{"map_hisat.migun"}, []string{s.Requires()[0].ID()})
	require.NoError(t, s.Run(ctx))

	data, err := os.ReadFile(env.Cfg.MapSummaryPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "migun\t1\t1\t0\t0\t0\t0\t100.00")
}

func TestExtractPPAndNovelRegions(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	env, rec := testEnv(t, dir, func(s *config.Spec) {
		s.MinLength = 50
		s.MinCoverage = 1
	})
	require.NoError(t, os.WriteFile(env.Cfg.GFF(), []byte(sampleGFF), 0o644))
	smp := env.Cfg.Samples()[0]

	// samtools view is simulated by writing the filtered BAM directly.
	rec.OnRun = func(cmd launcher.Command) error {
		writeBAMFile(t, outputArg(cmd.Args, "-o"),
			newRecord("r1", chr1, 600, 0x3, match(100)),
		)
		return nil
	}
	pp := ExtractPP(env, smp)
	require.NoError(t, pp.Run(ctx))
	assert.Equal(t, "3", outputArg(rec.Commands()[0].Args, "-f"))
	assert.True(t, task.Complete(pp))

	novel := FindNovelRegions(env, smp)
	require.NoError(t, novel.Run(ctx))

	regions, err := readNovelFile(novel.Outputs()[0])
	require.NoError(t, err)
	assert.Equal(t, []NovelRegion{{SeqID: "chr1", Start: 601, End: 700, MeanCoverage: "1.00"}}, regions)
}

func TestStringTie_MergeAndRescore(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	dir := t.TempDir()
	env, rec := testEnv(t, dir, func(s *config.Spec) { s.Kingdom = config.KingdomEukarya })
	smp := env.Cfg.Samples()[0]

	st := StringTieScores(env, smp)
	assert.Equal(t, "stringtie.migun", st.ID())
	var deps []string
	for _, d := range st.Requires() {
		deps = append(deps, d.ID())
	}
	assert.Equal(t, []string{"map_hisat.migun", "compile_gff"}, deps)

	merge := MergeStringTies(env)
	require.NoError(t, merge.Run(ctx))
	cmd := rec.Commands()[0]
	assert.Equal(t, "stringtie", cmd.Name)
	assert.Equal(t, "--merge", cmd.Args[0])
	assert.Equal(t, env.Cfg.UpdatedGFF(), outputArg(cmd.Args, "-G"))
	list, err := os.ReadFile(cmd.Args[len(cmd.Args)-1])
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(env.Cfg.StringTieDir(), "migun", "migun.gtf")+"\n", string(list))

	re := ReStringTie(env, smp)
	assert.Equal(t, "restringtie.migun", re.ID())
	require.NoError(t, re.Run(ctx))
	cmd = rec.Commands()[1]
	assert.Equal(t, []string{"-e", "-B"}, cmd.Args[:2])
	assert.Equal(t, MergedGTFPath(env.Cfg), outputArg(cmd.Args, "-G"))
	assert.Equal(t, filepath.Join(ReStringTieDir(env.Cfg), "migun", "migun.gtf"), outputArg(cmd.Args, "-o"))
}

func TestCountBasedDGE(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	dir := t.TempDir()
	design := filepath.Join(dir, "design.tsv")
	require.NoError(t, os.WriteFile(design, []byte("SampleID\tGroup\nmigun\tA\nother\tB\n"), 0o644))

	env, rec := testEnv(t, dir, func(s *config.Spec) {
		s.ExpDesign = design
		s.OrgCode = "eco"
		s.Samples = append(s.Samples, config.Sample{Name: "other", Reads: []config.ReadPair{{R1: "/reads/O.fastq"}}})
	})

	e := EdgeR(env, Original, "gene")
	assert.Equal(t, "edger.original.gene", e.ID())
	require.NoError(t, e.Run(ctx))

	cmd := rec.Commands()[0]
	assert.Equal(t, "Rscript", cmd.Name)
	script := cmd.Args[0]
	assert.FileExists(t, script)
	assert.Equal(t, []string{
		CountsPath(env.Cfg, Original, "gene"), design, "migun,other", "0.05", "eco",
		DGEResultPath(env, MethodEdgeR, Original, "gene"),
	}, cmd.Args[1:])

	res := DGEResultPath(env, MethodEdgeR, Original, "gene")
	assert.Equal(t, []string{res, strings.TrimSuffix(res, ".tsv") + "_kegg.tsv"}, e.Outputs())

	d := DESeq2(env, Updated, "gene")
	assert.Equal(t, "feature_counts.updated.gene", d.Requires()[0].ID())
}

func TestCountBasedDGE_NoPathwaysWithoutOrgCode(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	dir := t.TempDir()
	design := filepath.Join(dir, "design.tsv")
	require.NoError(t, os.WriteFile(design, []byte("SampleID\tGroup\nmigun\tA\nother\tB\n"), 0o644))
	env, rec := testEnv(t, dir, func(s *config.Spec) {
		s.ExpDesign = design
		s.Samples = append(s.Samples, config.Sample{Name: "other", Reads: []config.ReadPair{{R1: "/reads/O.fastq"}}})
	})

	d := DESeq2(env, Original, "gene")
	assert.Equal(t, []string{DGEResultPath(env, MethodDESeq2, Original, "gene")}, d.Outputs())
	require.NoError(t, d.Run(ctx))
	assert.Equal(t, "NA", rec.Commands()[0].Args[5])
}

func TestBallgown_RejectsBadDesign(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	dir := t.TempDir()
	design := filepath.Join(dir, "design.tsv")
	require.NoError(t, os.WriteFile(design, []byte("SampleID\tGroup\nmigun\tA\nother\tB\n"), 0o644))
	env, rec := testEnv(t, dir, func(s *config.Spec) {
		s.ExpDesign = design
		s.Samples = append(s.Samples, config.Sample{Name: "other", Reads: []config.ReadPair{{R1: "/reads/O.fastq"}}})
	})

	err := Ballgown(env).Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least two groups")
	assert.Empty(t, rec.Commands())
}
