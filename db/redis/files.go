package redis

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.opencensus.io/trace"

	"github.com/filegate/filegate/types"
)

// NextPostNo allocates the next post number from the store counter. Post
// numbers are monotonic and never reused, even across deleted files.
func (s *Store) NextPostNo(ctx context.Context) (int64, error) {
	ctx, span := trace.StartSpan(ctx, "GateDB.NextPostNo")
	defer span.End()

	n, err := s.client.Incr(ctx, filesPostCounterKey).Result()
	return n, mapError(err, "next post number")
}

// SaveFile inserts a file record. Fails with ErrAlreadyExists when the post
// number is taken.
func (s *Store) SaveFile(ctx context.Context, f *types.File) error {
	ctx, span := trace.StartSpan(ctx, "GateDB.SaveFile")
	defer span.End()

	key := fileKey(f.PostNo)
	set, err := s.client.HSetNX(ctx, key, "post_no", f.PostNo).Result()
	if err != nil {
		return mapError(err, "save file")
	}
	if !set {
		return errors.Wrap(ErrAlreadyExists, "save file")
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		"title", f.Title,
		"extra", f.Extra,
		"archive_chat", f.Archive.ChatID,
		"archive_msg", f.Archive.MessageID,
		"public_chat", f.PublicPost.ChatID,
		"public_msg", f.PublicPost.MessageID,
		"password", f.Password,
		"downloads", f.Downloads,
		"created_by", f.CreatedBy,
		"created_at_ms", timeToMs(f.CreatedAt),
		"updated_at_ms", timeToMs(f.UpdatedAt),
		"last_downloaded_ms", timeToMs(f.LastDownloadedAt),
	)
	pipe.ZAdd(ctx, filesIndexKey, redis.Z{Score: float64(f.PostNo), Member: f.PostNo})
	if _, err := pipe.Exec(ctx); err != nil {
		return mapError(err, "save file")
	}
	return nil
}

// File loads one file record.
func (s *Store) File(ctx context.Context, postNo int64) (*types.File, error) {
	ctx, span := trace.StartSpan(ctx, "GateDB.File")
	defer span.End()

	fields, err := s.client.HGetAll(ctx, fileKey(postNo)).Result()
	if err != nil {
		return nil, mapError(err, "get file")
	}
	if len(fields) == 0 {
		return nil, errors.Wrap(ErrNotFound, "get file")
	}
	return parseFile(postNo, fields), nil
}

// Files pages through records, newest post numbers first.
func (s *Store) Files(ctx context.Context, offset, limit int64) ([]*types.File, error) {
	ctx, span := trace.StartSpan(ctx, "GateDB.Files")
	defer span.End()

	members, err := s.client.ZRevRange(ctx, filesIndexKey, offset, offset+limit-1).Result()
	if err != nil {
		return nil, mapError(err, "list files")
	}
	files := make([]*types.File, 0, len(members))
	for _, m := range members {
		postNo, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		f, err := s.File(ctx, postNo)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// FileCount returns the number of stored files.
func (s *Store) FileCount(ctx context.Context) (int64, error) {
	ctx, span := trace.StartSpan(ctx, "GateDB.FileCount")
	defer span.End()

	n, err := s.client.ZCard(ctx, filesIndexKey).Result()
	return n, mapError(err, "count files")
}

// TotalDownloads returns the all-time delivery count across files.
func (s *Store) TotalDownloads(ctx context.Context) (int64, error) {
	ctx, span := trace.StartSpan(ctx, "GateDB.TotalDownloads")
	defer span.End()

	n, err := s.client.Get(ctx, downloadsCounterKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, mapError(err, "total downloads")
}

// UpdateFile rewrites the operator-editable fields of an existing record.
// The download counters are owned by RecordDelivery and left untouched.
func (s *Store) UpdateFile(ctx context.Context, f *types.File) error {
	ctx, span := trace.StartSpan(ctx, "GateDB.UpdateFile")
	defer span.End()

	key := fileKey(f.PostNo)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return mapError(err, "update file")
	}
	if exists == 0 {
		return errors.Wrap(ErrNotFound, "update file")
	}
	err = s.client.HSet(ctx, key,
		"title", f.Title,
		"extra", f.Extra,
		"public_chat", f.PublicPost.ChatID,
		"public_msg", f.PublicPost.MessageID,
		"password", f.Password,
		"updated_at_ms", timeToMs(f.UpdatedAt),
	).Err()
	return mapError(err, "update file")
}

// DeleteFile removes a record and its index entry. The post number is not
// reused.
func (s *Store) DeleteFile(ctx context.Context, postNo int64) error {
	ctx, span := trace.StartSpan(ctx, "GateDB.DeleteFile")
	defer span.End()

	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, fileKey(postNo))
	pipe.ZRem(ctx, filesIndexKey, postNo)
	if _, err := pipe.Exec(ctx); err != nil {
		return mapError(err, "delete file")
	}
	if del.Val() == 0 {
		return errors.Wrap(ErrNotFound, "delete file")
	}
	return nil
}

func parseFile(postNo int64, fields map[string]string) *types.File {
	return &types.File{
		PostNo: postNo,
		Title:  fields["title"],
		Extra:  fields["extra"],
		Archive: types.Coordinate{
			ChatID:    fieldInt64(fields, "archive_chat"),
			MessageID: fieldInt(fields, "archive_msg"),
		},
		PublicPost: types.Coordinate{
			ChatID:    fieldInt64(fields, "public_chat"),
			MessageID: fieldInt(fields, "public_msg"),
		},
		Password:         fields["password"],
		Downloads:        fieldInt64(fields, "downloads"),
		CreatedBy:        fieldInt64(fields, "created_by"),
		CreatedAt:        fieldTime(fields, "created_at_ms"),
		UpdatedAt:        fieldTime(fields, "updated_at_ms"),
		LastDownloadedAt: fieldTime(fields, "last_downloaded_ms"),
	}
}
