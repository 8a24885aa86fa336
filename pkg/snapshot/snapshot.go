// Package snapshot pushes whole filesystem images to an object store and
// pulls them back onto a medium. Images are gzipped; every snapshot carries a
// JSON manifest with a BLAKE2b-256 digest of the raw image which is verified
// on pull.
package snapshot

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"github.com/weberc2/diskfs/pkg/fs"
	"github.com/weberc2/diskfs/pkg/medium"
	"github.com/weberc2/diskfs/pkg/objectstore"
	. "github.com/weberc2/diskfs/pkg/types"
)

const (
	manifestSuffix = ".json"
	imageSuffix    = ".img.gz"

	// copyChunkSize bounds each medium read and write while copying an
	// image.
	copyChunkSize Byte = 1024 * 1024
)

type Manifest struct {
	ID          string    `json:"id"`
	Image       string    `json:"image"`
	Created     time.Time `json:"created"`
	Size        Byte      `json:"size"`
	Digest      string    `json:"digest"`
	Version     string    `json:"version"`
	BlockSize   Byte      `json:"blockSize"`
	TotalInodes uint16    `json:"totalInodes"`
	FreeInodes  uint16    `json:"freeInodes"`
	TotalBlocks uint16    `json:"totalBlocks"`
	FreeBlocks  uint16    `json:"freeBlocks"`
}

// Store keeps snapshots under `Prefix/<image slug>/` in `Bucket`.
type Store struct {
	Objects  ObjectStore
	Bucket   string
	Prefix   string
	TimeFunc func() time.Time
}

func (s *Store) now() time.Time {
	if s.TimeFunc != nil {
		return s.TimeFunc()
	}
	return time.Now().UTC()
}

func (s *Store) imagePrefix(image string) string {
	prefix := strings.Trim(s.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return prefix + slug.Make(image) + "/"
}

func (s *Store) manifestKey(image, id string) string {
	return s.imagePrefix(image) + id + manifestSuffix
}

func (s *Store) imageKey(image, id string) string {
	return s.imagePrefix(image) + id + imageSuffix
}

// Push uploads the filesystem image held in `m`. Only the bytes covered by
// the superblock's blocks are copied.
func (s *Store) Push(image string, m medium.ReadAll) (Manifest, error) {
	sb, err := fs.ReadSuperblock(m)
	if err != nil {
		return Manifest{}, fmt.Errorf("pushing snapshot of `%s`: %w", image, err)
	}

	hash, err := blake2b.New256(nil)
	if err != nil {
		return Manifest{}, fmt.Errorf("pushing snapshot of `%s`: %w", image, err)
	}
	var data bytes.Buffer
	size := sb.Size()
	chunk := make([]byte, copyChunkSize)
	for offset := Byte(0); offset < size; offset += copyChunkSize {
		p := chunk
		if remaining := size - offset; remaining < copyChunkSize {
			p = chunk[:remaining]
		}
		if err := m.ReadAll(offset, p); err != nil {
			return Manifest{}, fmt.Errorf(
				"pushing snapshot of `%s`: %w",
				image,
				err,
			)
		}
		hash.Write(p)
		data.Write(p)
	}

	manifest := Manifest{
		ID:          uuid.New().String(),
		Image:       image,
		Created:     s.now(),
		Size:        size,
		Digest:      hex.EncodeToString(hash.Sum(nil)),
		Version:     sb.Version.String(),
		BlockSize:   sb.BlockSize(),
		TotalInodes: sb.TotalInodes,
		FreeInodes:  sb.FreeInodes,
		TotalBlocks: sb.TotalBlocks,
		FreeBlocks:  sb.FreeBlocks,
	}

	gz := objectstore.GzipObjectStore{ObjectStore: s.Objects}
	if err := gz.PutObject(
		s.Bucket,
		s.imageKey(image, manifest.ID),
		bytes.NewReader(data.Bytes()),
	); err != nil {
		return Manifest{}, fmt.Errorf("pushing snapshot of `%s`: %w", image, err)
	}

	// the manifest goes last so that a listed snapshot always has its image
	encoded, err := json.Marshal(&manifest)
	if err != nil {
		return Manifest{}, fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := s.Objects.PutObject(
		s.Bucket,
		s.manifestKey(image, manifest.ID),
		bytes.NewReader(encoded),
	); err != nil {
		return Manifest{}, fmt.Errorf("pushing snapshot of `%s`: %w", image, err)
	}

	log.WithFields(log.Fields{
		"image":  image,
		"id":     manifest.ID,
		"size":   manifest.Size,
		"digest": manifest.Digest,
	}).Info("pushed snapshot")
	return manifest, nil
}

// Manifest fetches the manifest for snapshot `id` of `image`.
func (s *Store) Manifest(image, id string) (Manifest, error) {
	body, err := s.Objects.GetObject(s.Bucket, s.manifestKey(image, id))
	if err != nil {
		return Manifest{}, fmt.Errorf(
			"fetching manifest `%s` of `%s`: %w",
			id,
			image,
			err,
		)
	}
	defer body.Close()

	var manifest Manifest
	if err := json.NewDecoder(body).Decode(&manifest); err != nil {
		return Manifest{}, fmt.Errorf(
			"decoding manifest `%s` of `%s`: %w",
			id,
			image,
			err,
		)
	}
	return manifest, nil
}

// List returns the snapshots of `image` from oldest to newest.
func (s *Store) List(image string) ([]Manifest, error) {
	keys, err := s.Objects.ListObjects(s.Bucket, s.imagePrefix(image))
	if err != nil {
		return nil, fmt.Errorf("listing snapshots of `%s`: %w", image, err)
	}

	manifests := []Manifest{}
	for _, key := range keys {
		if !strings.HasSuffix(key, manifestSuffix) {
			continue
		}
		id := strings.TrimSuffix(
			strings.TrimPrefix(key, s.imagePrefix(image)),
			manifestSuffix,
		)
		manifest, err := s.Manifest(image, id)
		if err != nil {
			return nil, fmt.Errorf("listing snapshots of `%s`: %w", image, err)
		}
		manifests = append(manifests, manifest)
	}
	sort.SliceStable(manifests, func(i, j int) bool {
		return manifests[i].Created.Before(manifests[j].Created)
	})
	return manifests, nil
}

// Latest returns the newest snapshot of `image`.
func (s *Store) Latest(image string) (Manifest, error) {
	manifests, err := s.List(image)
	if err != nil {
		return Manifest{}, err
	}
	if len(manifests) < 1 {
		return Manifest{}, fmt.Errorf(
			"finding latest snapshot of `%s`: %w",
			image,
			NotFoundErr,
		)
	}
	return manifests[len(manifests)-1], nil
}

// Pull writes snapshot `id` of `image` onto `m` after verifying its digest.
// Nothing is written when verification fails.
func (s *Store) Pull(image, id string, m medium.WriteAll) (Manifest, error) {
	manifest, err := s.Manifest(image, id)
	if err != nil {
		return Manifest{}, fmt.Errorf("pulling snapshot: %w", err)
	}

	gz := objectstore.GzipObjectStore{ObjectStore: s.Objects}
	body, err := gz.GetObject(s.Bucket, s.imageKey(image, id))
	if err != nil {
		return Manifest{}, fmt.Errorf("pulling snapshot `%s`: %w", id, err)
	}
	defer body.Close()

	data, err := ioutil.ReadAll(io.LimitReader(body, int64(manifest.Size)+1))
	if err != nil {
		return Manifest{}, fmt.Errorf("pulling snapshot `%s`: %w", id, err)
	}
	if Byte(len(data)) != manifest.Size {
		return Manifest{}, fmt.Errorf(
			"pulling snapshot `%s`: image is `%d` bytes; manifest says "+
				"`%d`: %w",
			id,
			len(data),
			manifest.Size,
			ChecksumMismatchErr,
		)
	}
	sum := blake2b.Sum256(data)
	if digest := hex.EncodeToString(sum[:]); digest != manifest.Digest {
		return Manifest{}, fmt.Errorf(
			"pulling snapshot `%s`: digest `%s`; manifest says `%s`: %w",
			id,
			digest,
			manifest.Digest,
			ChecksumMismatchErr,
		)
	}

	for offset := Byte(0); offset < manifest.Size; offset += copyChunkSize {
		end := offset + copyChunkSize
		if end > manifest.Size {
			end = manifest.Size
		}
		if err := m.WriteAll(offset, data[offset:end]); err != nil {
			return Manifest{}, fmt.Errorf(
				"pulling snapshot `%s`: %w",
				id,
				err,
			)
		}
	}

	log.WithFields(log.Fields{
		"image": image,
		"id":    id,
		"size":  manifest.Size,
	}).Info("pulled snapshot")
	return manifest, nil
}

// Delete removes snapshot `id` of `image`. A missing image object is not an
// error once the manifest is gone.
func (s *Store) Delete(image, id string) error {
	if err := s.Objects.DeleteObject(
		s.Bucket,
		s.manifestKey(image, id),
	); err != nil {
		return fmt.Errorf("deleting snapshot `%s` of `%s`: %w", id, image, err)
	}
	if err := s.Objects.DeleteObject(
		s.Bucket,
		s.imageKey(image, id),
	); err != nil && !errors.Is(err, NotFoundErr) {
		return fmt.Errorf("deleting snapshot `%s` of `%s`: %w", id, image, err)
	}
	return nil
}
