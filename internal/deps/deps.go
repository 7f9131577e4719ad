package deps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vk/rnaflow/internal/config"
	"github.com/vk/rnaflow/internal/ctxlog"
	"github.com/vk/rnaflow/internal/launcher"
)

// ExitCode is the process status used when a dependency is missing.
const ExitCode = 3

// ErrMissing matches every *MissingError.
var ErrMissing = errors.New("dependency not installed")

const installHint = "Please install it and try again. Run INSTALL.sh or read README for instruction on installations"

// Requirements lists what a run needs.
type Requirements struct {
	Tools     []string
	RPackages []string
}

// MissingError lists every dependency that failed its check.
type MissingError struct {
	Tools     []string
	RPackages []string
}

func (e *MissingError) Error() string {
	var parts []string
	if len(e.Tools) > 0 {
		parts = append(parts, "tools: "+strings.Join(e.Tools, ", "))
	}
	if len(e.RPackages) > 0 {
		parts = append(parts, "R packages: "+strings.Join(e.RPackages, ", "))
	}
	return "missing dependencies (" + strings.Join(parts, "; ") + ")"
}

func (e *MissingError) Is(target error) bool { return target == ErrMissing }

// Checker checks dependencies through a Launcher.
type Checker struct {
	Launcher launcher.Launcher
	// Out receives the fatal messages. Defaults to os.Stderr.
	Out io.Writer
	// Exit terminates the process. Defaults to os.Exit.
	Exit func(code int)
}

// NewChecker returns a Checker that prints to stderr and exits the process.
func NewChecker(l launcher.Launcher) *Checker {
	return &Checker{Launcher: l, Out: os.Stderr, Exit: os.Exit}
}

func (c *Checker) out() io.Writer {
	if c.Out == nil {
		return os.Stderr
	}
	return c.Out
}

func (c *Checker) exit(code int) {
	if c.Exit == nil {
		os.Exit(code)
	}
	c.Exit(code)
}

func (c *Checker) hasTool(name string) bool {
	_, err := c.Launcher.LookPath(name)
	return err == nil
}

func (c *Checker) hasRPackage(ctx context.Context, name string) bool {
	if !c.hasTool("Rscript") {
		return false
	}
	cmd := launcher.Command{
		Name: "Rscript",
		Args: []string{"-e", fmt.Sprintf("suppressPackageStartupMessages(library(%s))", name)},
	}
	if err := c.Launcher.Run(ctx, cmd); err != nil {
		ctxlog.FromContext(ctx).Debug("R package check failed.", "package", name, "error", err)
		return false
	}
	return true
}

// CheckThirdParty returns true when name is on the search path. Otherwise it
// prints an installation hint and terminates the process.
func (c *Checker) CheckThirdParty(ctx context.Context, name string) bool {
	if c.hasTool(name) {
		return true
	}
	fmt.Fprintf(c.out(), "%s is not installed! \n %s\n", name, installHint)
	c.exit(ExitCode)
	return false
}

// CheckRPackage returns true when the R package loads. Otherwise it prints
// an installation hint and terminates the process.
func (c *Checker) CheckRPackage(ctx context.Context, name string) bool {
	if c.hasRPackage(ctx, name) {
		return true
	}
	fmt.Fprintf(c.out(), "R package %s is not installed! \n %s\n", name, installHint)
	c.exit(ExitCode)
	return false
}

// CheckAll checks every requirement and reports all missing ones together.
func (c *Checker) CheckAll(ctx context.Context, req Requirements) error {
	logger := ctxlog.FromContext(ctx)
	missing := &MissingError{}
	for _, t := range req.Tools {
		if !c.hasTool(t) {
			missing.Tools = append(missing.Tools, t)
		}
	}
	for _, p := range req.RPackages {
		if !c.hasRPackage(ctx, p) {
			missing.RPackages = append(missing.RPackages, p)
		}
	}
	if len(missing.Tools) == 0 && len(missing.RPackages) == 0 {
		logger.Debug("All dependencies found.", "tools", len(req.Tools), "r_packages", len(req.RPackages))
		return nil
	}
	return missing
}

// Report prints the not-installed message for every dependency listed in
// err.
func (c *Checker) Report(err error) {
	var missing *MissingError
	if errors.As(err, &missing) {
		for _, t := range missing.Tools {
			fmt.Fprintf(c.out(), "%s is not installed! \n", t)
		}
		for _, p := range missing.RPackages {
			fmt.Fprintf(c.out(), "R package %s is not installed! \n", p)
		}
	}
	fmt.Fprintf(c.out(), " %s\n", installHint)
}

// Require runs CheckAll and terminates the process when anything is missing.
func (c *Checker) Require(ctx context.Context, req Requirements) {
	if err := c.CheckAll(ctx, req); err != nil {
		c.Report(err)
		c.exit(ExitCode)
	}
}

// RequirementsFor derives the tools and R packages used by cfg.
func RequirementsFor(cfg config.RunConfig) Requirements {
	req := Requirements{Tools: []string{"samtools", "featureCounts"}}
	switch cfg.Aligner() {
	case config.AlignerHISAT2:
		req.Tools = append(req.Tools, "hisat2-build", "hisat2")
	case config.AlignerSTAR:
		req.Tools = append(req.Tools, "STAR")
	}
	if cfg.QC() {
		req.Tools = append(req.Tools, "FaQC.pl")
	}
	if cfg.Kingdom().Eukaryotic() {
		req.Tools = append(req.Tools, "stringtie")
	}
	if cfg.HasExpDesign() {
		req.Tools = append(req.Tools, "Rscript")
		req.RPackages = append(req.RPackages, "edgeR", "DESeq2")
		if cfg.Kingdom().Eukaryotic() {
			req.RPackages = append(req.RPackages, "ballgown")
		}
		if cfg.OrgCode() != "" {
			req.RPackages = append(req.RPackages, "limma")
		}
	}
	return req
}
