package main

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/mmp/wx/log"
	"github.com/mmp/wx/util"
)

// Archiver mirrors yearly .om files found in a domain's archive directory
// to GCS, then moves the local copy
// under an archive/ subtree so it isn't re-scanned by future runs.
type Archiver struct {
	existing map[string]int64
	flags    int
	ctx      context.Context
	bucket   *storage.BucketHandle
	base     string
	lg       *log.Logger
}

const (
	ArchiverFlagsDryRun = 1 << iota
	ArchiverFlagsNoCheckArchived
	ArchiverFlagsArchiveStorageClass
)

func gcsInit(ctx context.Context, bucketName string) (*storage.Client, *storage.BucketHandle, error) {
	credsJSON := os.Getenv("VICE_WX_GCS_CREDENTIALS")
	var opts []option.ClientOption
	if credsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credsJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}
	return client, client.Bucket(bucketName), nil
}

func MakeArchiver(base string, flags int, lg *log.Logger) (*Archiver, error) {
	if !*doArchive {
		return nil, nil
	}

	ctx := context.Background()
	_, bucket, err := gcsInit(ctx, bucketName)
	if err != nil {
		return nil, err
	}

	arch := &Archiver{
		existing: make(map[string]int64),
		flags:    flags,
		ctx:      ctx,
		bucket:   bucket,
		base:     util.Select(flags&ArchiverFlagsArchiveStorageClass != 0, "archive-coldline", "archive"),
		lg:       lg,
	}

	if flags&ArchiverFlagsDryRun == 0 && flags&ArchiverFlagsNoCheckArchived == 0 {
		query := storage.Query{
			Projection: storage.ProjectionNoACL,
			Prefix:     path.Join(arch.base, base),
		}
		lg.Infof("Archiver: listing existing objects in %q", query.Prefix)

		it := bucket.Objects(ctx, &query)
		for {
			obj, err := it.Next()
			if err == iterator.Done {
				break
			} else if err != nil {
				return nil, err
			}
			arch.existing[obj.Name] = obj.Size
		}

		lg.Infof("Archiver: found %d objects, %s", arch.ArchivedFiles(), util.ByteCount(arch.ArchivedFileSize()))
	}

	return arch, nil
}

func (a *Archiver) ArchivedFiles() int {
	if a == nil {
		return 0
	}
	return len(a.existing)
}

func (a *Archiver) ArchivedFileSize() int64 {
	if a == nil {
		return 0
	}
	var s int64
	for _, sz := range a.existing {
		s += sz
	}
	return s
}

// Archive uploads fn (a finished yearly .om shard) to GCS if it isn't
// already there with the expected size, then renames it locally under
// a.base so subsequent ingest runs don't re-scan it. Safe to call from
// multiple goroutines concurrently.
func (a *Archiver) Archive(fn string) (err error) {
	if a == nil {
		return nil
	}
	if a.flags&ArchiverFlagsDryRun != 0 {
		return nil
	}

	fi, err := os.Stat(fn)
	if err != nil {
		return err
	}

	objfn := path.Join(a.base, fn)

	if sz, ok := a.existing[objfn]; !ok || sz != fi.Size() {
		f, err := os.Open(fn)
		if err != nil {
			return err
		}
		defer f.Close()

		objw := a.bucket.Object(objfn).NewWriter(a.ctx)
		if a.flags&ArchiverFlagsArchiveStorageClass != 0 {
			objw.StorageClass = "ARCHIVE"
		}

		if _, err = io.Copy(objw, f); err != nil {
			return err
		}
		if err = objw.Close(); err != nil {
			return err
		}
		a.lg.Infof("%s->%s: archived to GCS", fn, objfn)
	}

	if err := os.MkdirAll(filepath.Dir(objfn), 0755); err != nil {
		return err
	}
	if err := os.Rename(fn, objfn); err != nil {
		return err
	}
	a.lg.Infof("%s->%s: renamed locally", fn, objfn)
	return nil
}
