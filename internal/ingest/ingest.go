// Package ingest turns raw audio bytes into everything the library
// needs to store a track: a content hash, parsed tags and an embedded
// cover, all read in a single pass over the source.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// Result is the outcome of processing one audio source.
//
// Hash is always set on success. Metadata and Cover are nil when the
// source was not seekable or when tag parsing failed; neither case is
// an error, the track is simply stored without tags.
type Result struct {
	Hash     string
	Metadata *Metadata
	Cover    *Cover
}

// Pipeline processes audio sources. The zero value is not usable,
// construct with New.
type Pipeline struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{log: log}
}

// Process reads r to the end and returns its content hash together
// with whatever metadata could be extracted.
//
// When r supports random access (os.File, bytes.Reader, or anything
// else implementing io.ReaderAt with a known size) the hash and the
// tag parse run concurrently over independent section readers, so the
// source is consumed only once from the caller's point of view.
// Otherwise r is streamed once for the hash alone.
func (p *Pipeline) Process(ctx context.Context, r io.Reader) (*Result, error) {
	if ra, size, ok := randomAccess(r); ok {
		return p.processSections(ctx, ra, size)
	}

	p.log.Debug("source not seekable, hashing without metadata")

	hash, err := HashReader(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("hash source: %w", err)
	}
	return &Result{Hash: hash}, nil
}

// ProcessFile opens path and processes it with the concurrent path.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return p.Process(ctx, f)
}

func (p *Pipeline) processSections(ctx context.Context, ra io.ReaderAt, size int64) (*Result, error) {
	var (
		hash    string
		hashErr error
		done    = make(chan struct{})
	)
	go func() {
		defer close(done)
		hash, hashErr = HashReader(ctx, io.NewSectionReader(ra, 0, size))
	}()

	meta, cover, metaErr := parseMetadata(io.NewSectionReader(ra, 0, size))

	<-done
	if hashErr != nil {
		return nil, fmt.Errorf("hash source: %w", hashErr)
	}
	if metaErr != nil {
		// Unparseable tags degrade to a hash-only result.
		p.log.Debug("metadata parse failed", zap.Error(metaErr))
		return &Result{Hash: hash}, nil
	}

	return &Result{Hash: hash, Metadata: meta, Cover: cover}, nil
}

// randomAccess reports whether r can be read at arbitrary offsets and,
// if so, its total size.
func randomAccess(r io.Reader) (io.ReaderAt, int64, bool) {
	ra, ok := r.(io.ReaderAt)
	if !ok {
		return nil, 0, false
	}
	switch v := r.(type) {
	case *os.File:
		info, err := v.Stat()
		if err != nil || !info.Mode().IsRegular() {
			return nil, 0, false
		}
		return ra, info.Size(), true
	case interface{ Size() int64 }:
		return ra, v.Size(), true
	case io.Seeker:
		size, err := v.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, false
		}
		return ra, size, true
	}
	return nil, 0, false
}
