package downloader

import (
	"io"
	"os"

	"parafetch/internal"
	"parafetch/utils"
)

// Assembler concatenates scratch segment files into the final artifact in
// segment_index order, per §4.7.
type Assembler struct {
	fs *utils.FileOperations
}

func NewAssembler() *Assembler {
	return &Assembler{fs: utils.NewFileOperations()}
}

// Assemble writes finalPath by concatenating each segment's scratch file,
// in the order the slice is given (callers must pass segments already
// sorted by SegmentIndex). It assembles into a sibling temp file and
// atomically renames it into place, so a reader never observes a
// partially-concatenated final artifact; on failure the temp file is left
// in place to aid debugging.
func (a *Assembler) Assemble(segments []internal.SegmentRecord, finalPath string) error {
	tmpPath := finalPath + ".assembling"

	out, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return internal.NewAssemblyFailedError("failed to open final artifact", err)
	}

	for _, seg := range segments {
		if err := a.appendScratch(out, seg.ScratchPath); err != nil {
			out.Close()
			return err
		}
	}
	if err := out.Close(); err != nil {
		return internal.NewAssemblyFailedError("failed to finalize assembled artifact", err)
	}

	if err := a.fs.AtomicRename(tmpPath, finalPath); err != nil {
		return internal.NewAssemblyFailedError("failed to move assembled artifact into place", err)
	}
	return nil
}

func (a *Assembler) appendScratch(out *os.File, scratchPath string) error {
	in, err := os.Open(scratchPath)
	if err != nil {
		return internal.NewAssemblyFailedError("missing scratch file", err).WithContext("scratch_path", scratchPath)
	}
	defer in.Close()

	if _, err := io.Copy(out, in); err != nil {
		return internal.NewAssemblyFailedError("failed to append scratch file", err).WithContext("scratch_path", scratchPath)
	}
	return nil
}

// Cleanup deletes every scratch file. Used both after a successful
// assembly and on abort.
func (a *Assembler) Cleanup(segments []internal.SegmentRecord) error {
	var firstErr error
	for _, seg := range segments {
		if err := a.fs.RemoveIfExists(seg.ScratchPath); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
