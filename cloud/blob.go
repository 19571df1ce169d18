/*
Copyright © 2020 the atmos authors.
This file is part of atmos.

atmos is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

atmos is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with atmos.  If not, see <http://www.gnu.org/licenses/>.
*/

package cloud

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"
)

// MaxRetries is the number of times a failed upload is retried.
var MaxRetries uint64 = 5

// Archive uploads files to the blob storage location dest, for example
// "s3://bucket/experiment1" or "file:///data/archive". Each file is stored
// under its base name. Failed uploads are retried with exponential backoff.
// Archive returns the keys the files were written to.
func Archive(ctx context.Context, dest string, files []string, log logrus.FieldLogger) ([]string, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	bucket, err := OpenBucket(ctx, dest)
	if err != nil {
		return nil, err
	}
	prefix, err := keyPrefix(dest)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(files))
	for _, f := range files {
		data, err := readFile(f)
		if err != nil {
			return keys, err
		}
		key := path.Join(prefix, filepath.Base(f))
		err = backoff.RetryNotify(
			func() error { return writeBlob(ctx, bucket, key, data) },
			backoff.WithMaxRetries(backoff.NewExponentialBackOff(), MaxRetries),
			func(err error, d time.Duration) {
				log.WithFields(logrus.Fields{"key": key, "wait": d}).Warnf("cloud: upload failed, retrying: %v", err)
			},
		)
		if err != nil {
			return keys, err
		}
		log.WithFields(logrus.Fields{"file": f, "dest": dest, "key": key}).Info("archived")
		keys = append(keys, key)
	}
	return keys, nil
}

// Fetch reads the blob at key in the bucket at location.
func Fetch(ctx context.Context, location, key string) ([]byte, error) {
	bucket, err := OpenBucket(ctx, location)
	if err != nil {
		return nil, err
	}
	return readBlob(ctx, bucket, key)
}

func readFile(name string) ([]byte, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("cloud: %v", err)
	}
	defer f.Close()
	var b bytes.Buffer
	if _, err := io.Copy(&b, f); err != nil {
		return nil, fmt.Errorf("cloud: reading %s: %v", name, err)
	}
	return b.Bytes(), nil
}

// readBlob reads the given blob from the given bucket.
func readBlob(ctx context.Context, bucket *blob.Bucket, key string) ([]byte, error) {
	var b bytes.Buffer
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("cloud: reading blob key %s: %v", key, err)
	}
	defer r.Close()
	if _, err = io.Copy(&b, r); err != nil {
		return nil, fmt.Errorf("cloud: reading blob key %s: %v", key, err)
	}
	return b.Bytes(), nil
}

// writeBlob writes the given data to the given bucket.
func writeBlob(ctx context.Context, bucket *blob.Bucket, key string, data []byte) error {
	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("cloud: creating writer for blob %s: %v", key, err)
	}
	if _, err = io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return fmt.Errorf("cloud: copying blob %s: %v", key, err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("cloud: writing blob %s: %v", key, err)
	}
	return nil
}
