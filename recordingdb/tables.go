// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package recordingdb

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storj.io/videostore/storage"
)

// TableSet names the tables of one storage class.
type TableSet struct {
	Class     StorageClass
	Metadata  storage.Table
	Index     storage.Table
	Recording storage.Table
	// Expiring is set when rows are written with a ttl.
	Expiring bool
}

var (
	standardTables = TableSet{
		Class:     Standard,
		Metadata:  "recording_metadata_v2",
		Index:     "place_recording_index_v2",
		Recording: "recording_v2",
		Expiring:  true,
	}
	favoriteTables = TableSet{
		Class:     Favorited,
		Metadata:  "recording_metadata_v2_favorite",
		Index:     "place_recording_index_v2_favorite",
		Recording: "recording_v2_favorite",
	}
)

// Tables returns the tables of class.
func Tables(class StorageClass) TableSet {
	if class == Favorited {
		return favoriteTables
	}
	return standardTables
}

// AllTables lists every table used by the package.
func AllTables() []storage.Table {
	return []storage.Table{
		standardTables.Metadata, standardTables.Index, standardTables.Recording,
		favoriteTables.Metadata, favoriteTables.Index, favoriteTables.Recording,
		purgeTable, purgeAtTable, placePurgeTable,
	}
}

func (set TableSet) ttl(ttl time.Duration) time.Duration {
	if !set.Expiring {
		return 0
	}
	return ttl
}

func (set TableSet) metadata() metadataTable   { return metadataTable{set} }
func (set TableSet) index() indexTable         { return indexTable{set} }
func (set TableSet) recording() recordingTable { return recordingTable{set} }

// metadata attribute names.
const (
	attrName             = "name"
	attrPlace            = "placeid"
	attrAccount          = "accountid"
	attrCamera           = "cameraid"
	attrPerson           = "personid"
	attrWidth            = "width"
	attrHeight           = "height"
	attrBandwidth        = "bandwidth"
	attrFramerate        = "framerate"
	attrPrecapture       = "precapture"
	attrLocation         = "location"
	attrType             = "type"
	attrExpiration       = "expiration"
	attrDeletedTime      = "deletedtime"
	attrDeletedPartition = "deletedpartition"
	attrVideoCodec       = "videocodec"
	attrAudioCodec       = "audiocodec"
	attrDuration         = "duration"
	attrSize             = "size"
	attrDeleted          = "deleted"
	attrTag              = "tag"
	deletedValue         = "true"
)

// metadataTable stores one row per attribute of a recording.
type metadataTable struct{ set TableSet }

func recordingPartition(id uuid.UUID) storage.Key {
	return storage.Key(nil).AppendUUID(id)
}

func (t metadataTable) insertField(id uuid.UUID, attr, value string, ttl time.Duration) storage.Mutation {
	return storage.Mutation{
		Table:      t.set.Metadata,
		Partition:  recordingPartition(id),
		Clustering: storage.Key(nil).AppendString(attr).AppendString(""),
		Value:      storage.Value(value),
		TTL:        t.set.ttl(ttl),
	}
}

func (t metadataTable) insertTime(id uuid.UUID, attr string, value time.Time, ttl time.Duration) storage.Mutation {
	return t.insertField(id, attr, strconv.FormatInt(value.UnixMilli(), 10), ttl)
}

func (t metadataTable) insertTag(id uuid.UUID, tag string, ttl time.Duration) storage.Mutation {
	return storage.Mutation{
		Table:      t.set.Metadata,
		Partition:  recordingPartition(id),
		Clustering: storage.Key(nil).AppendString(attrTag).AppendString(tag),
		Value:      storage.Value(tag),
		TTL:        t.set.ttl(ttl),
	}
}

func (t metadataTable) deleteTag(id uuid.UUID, tag string) storage.Mutation {
	return storage.Mutation{
		Table:      t.set.Metadata,
		Partition:  recordingPartition(id),
		Clustering: storage.Key(nil).AppendString(attrTag).AppendString(tag),
		Delete:     true,
	}
}

func (t metadataTable) deleteRecording(id uuid.UUID) storage.Mutation {
	return storage.Mutation{
		Table:     t.set.Metadata,
		Partition: recordingPartition(id),
		Delete:    true,
	}
}

func (t metadataTable) selectRecording(id uuid.UUID) storage.ScanOptions {
	return storage.ScanOptions{
		Table:     t.set.Metadata,
		Partition: recordingPartition(id),
	}
}

// materialize folds the attribute rows of a recording. It returns nil when
// there are no rows.
func (t metadataTable) materialize(log *zap.Logger, id uuid.UUID, rows []storage.Row) *Recording {
	if len(rows) == 0 {
		return nil
	}

	rec := &Recording{
		ID:                id,
		Class:             t.set.Class,
		Width:             -1,
		Height:            -1,
		Bandwidth:         -1,
		Framerate:         -1,
		VideoCodec:        DefaultVideoCodec,
		AudioCodec:        DefaultAudioCodec,
		DeletionPartition: UnknownPartition,
		Stream:            IsStreamID(id),
	}

	var hasDuration, hasSize bool
	for _, row := range rows {
		r := storage.NewKeyReader(row.Clustering)
		attr, qualifier := r.ReadString(), r.ReadString()
		if err := r.Err(); err != nil {
			log.Warn("invalid metadata key", zap.Stringer("recording", id), zap.Error(err))
			continue
		}

		value := string(row.Value)
		var err error
		switch attr {
		case attrName:
			rec.Name = value
		case attrPlace:
			rec.PlaceID, err = uuid.Parse(value)
		case attrAccount:
			rec.AccountID, err = uuid.Parse(value)
		case attrCamera:
			rec.CameraID, err = uuid.Parse(value)
		case attrPerson:
			rec.PersonID, err = uuid.Parse(value)
		case attrWidth:
			rec.Width, err = atoiOr(value, rec.Width)
		case attrHeight:
			rec.Height, err = atoiOr(value, rec.Height)
		case attrBandwidth:
			rec.Bandwidth, err = atoiOr(value, rec.Bandwidth)
		case attrFramerate:
			var framerate float64
			if framerate, err = strconv.ParseFloat(value, 64); err == nil {
				rec.Framerate = framerate
			}
		case attrPrecapture:
			var seconds int
			seconds, err = strconv.Atoi(value)
			rec.Precapture = time.Duration(seconds) * time.Second
		case attrLocation:
			rec.Location = value
		case attrType:
			rec.Stream = value == typeValue(true)
		case attrExpiration:
			rec.Expiration, err = parseMillis(value)
		case attrDeletedTime:
			rec.DeletionTime, err = parseMillis(value)
		case attrDeletedPartition:
			rec.DeletionPartition, err = atoiOr(value, rec.DeletionPartition)
		case attrVideoCodec:
			rec.VideoCodec = value
		case attrAudioCodec:
			rec.AudioCodec = value
		case attrDuration:
			var seconds float64
			seconds, err = strconv.ParseFloat(value, 64)
			rec.Duration = secondsToDuration(seconds)
			hasDuration = err == nil
		case attrSize:
			rec.Size, err = strconv.ParseInt(value, 10, 64)
			hasSize = err == nil
		case attrDeleted:
			rec.Deleted = value == deletedValue
		case attrTag:
			rec.Tags = append(rec.Tags, qualifier)
		default:
			log.Warn("unknown metadata attribute", zap.Stringer("recording", id), zap.String("attribute", attr))
		}
		if err != nil {
			log.Warn("invalid metadata value",
				zap.Stringer("recording", id),
				zap.String("attribute", attr),
				zap.String("value", value),
				zap.Error(err))
		}
	}
	rec.Completed = hasDuration && hasSize
	rec.Tags = mergeTags(rec.Tags, nil)
	return rec
}

func atoiOr(value string, fallback int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fallback, err
	}
	return v, nil
}

func parseMillis(value string) (time.Time, error) {
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// index fields.
const (
	fieldCamera  = "camera"
	fieldTag     = "tag"
	fieldType    = "type"
	fieldDeleted = "deleted"
)

// unknownSize is stored for index entries of in progress recordings.
const unknownSize = -1

// IndexEntry is a recording id read from a secondary index.
type IndexEntry struct {
	RecordingID uuid.UUID
	// Size is negative while the recording is in progress.
	Size       int64
	Expiration time.Time
	Favorite   bool
}

// Completed returns whether the entry carries the final recording size.
func (entry IndexEntry) Completed() bool { return entry.Size >= 0 }

// indexTable stores (place, field) -> (value, recording id) pointers.
type indexTable struct{ set TableSet }

func indexPartition(place uuid.UUID, field string) storage.Key {
	return storage.Key(nil).AppendUUID(place).AppendString(field)
}

func (t indexTable) insert(place uuid.UUID, field, value string, id uuid.UUID, size int64, expiration time.Time, ttl time.Duration) storage.Mutation {
	var expires int64
	if !expiration.IsZero() {
		expires = expiration.UnixMilli()
	}
	return storage.Mutation{
		Table:      t.set.Index,
		Partition:  indexPartition(place, field),
		Clustering: storage.Key(nil).AppendString(value).AppendUUID(id),
		Value:      storage.Value(storage.Key(nil).AppendInt64(size).AppendInt64(expires)),
		TTL:        t.set.ttl(ttl),
	}
}

func (t indexTable) delete(place uuid.UUID, field, value string, id uuid.UUID) storage.Mutation {
	return storage.Mutation{
		Table:      t.set.Index,
		Partition:  indexPartition(place, field),
		Clustering: storage.Key(nil).AppendString(value).AppendUUID(id),
		Delete:     true,
	}
}

func (t indexTable) insertCamera(place, camera, id uuid.UUID, expiration time.Time, ttl time.Duration) storage.Mutation {
	return t.insert(place, fieldCamera, camera.String(), id, unknownSize, expiration, ttl)
}

func (t indexTable) deleteCamera(place, camera, id uuid.UUID) storage.Mutation {
	return t.delete(place, fieldCamera, camera.String(), id)
}

func (t indexTable) insertTag(place uuid.UUID, tag string, id uuid.UUID, expiration time.Time, ttl time.Duration) storage.Mutation {
	return t.insert(place, fieldTag, tag, id, unknownSize, expiration, ttl)
}

func (t indexTable) deleteTag(place uuid.UUID, tag string, id uuid.UUID) storage.Mutation {
	return t.delete(place, fieldTag, tag, id)
}

// insertType writes the type entry, size is negative for in progress recordings.
func (t indexTable) insertType(place uuid.UUID, stream bool, id uuid.UUID, size int64, expiration time.Time, ttl time.Duration) storage.Mutation {
	return t.insert(place, fieldType, typeValue(stream), id, size, expiration, ttl)
}

func (t indexTable) deleteType(place uuid.UUID, stream bool, id uuid.UUID) storage.Mutation {
	return t.delete(place, fieldType, typeValue(stream), id)
}

func (t indexTable) insertDeleted(place, id uuid.UUID, size int64, expiration time.Time, ttl time.Duration) storage.Mutation {
	return t.insert(place, fieldDeleted, "", id, size, expiration, ttl)
}

func (t indexTable) deleteDeleted(place, id uuid.UUID) storage.Mutation {
	return t.delete(place, fieldDeleted, "", id)
}

// selectIDs returns the ids between end and start, inclusive, newest first.
func (t indexTable) selectIDs(place uuid.UUID, field, value string, start, end uuid.UUID, limit int) storage.ScanOptions {
	prefix := storage.Key(nil).AppendString(value)
	return storage.ScanOptions{
		Table:     t.set.Index,
		Partition: indexPartition(place, field),
		Prefix:    prefix,
		First:     storage.CloneKey(prefix).AppendUUID(end),
		Last:      storage.CloneKey(prefix).AppendUUID(start),
		Reverse:   true,
		PageSize:  limit,
	}
}

// selectRecordingSizeAsc returns the recording type entries, oldest first.
func (t indexTable) selectRecordingSizeAsc(place uuid.UUID, limit int) storage.ScanOptions {
	return storage.ScanOptions{
		Table:     t.set.Index,
		Partition: indexPartition(place, fieldType),
		Prefix:    storage.Key(nil).AppendString(typeValue(false)),
		PageSize:  limit,
	}
}

func (t indexTable) count(place uuid.UUID, field, value string) storage.ScanOptions {
	return storage.ScanOptions{
		Table:     t.set.Index,
		Partition: indexPartition(place, field),
		Prefix:    storage.Key(nil).AppendString(value),
	}
}

func (t indexTable) decode(row storage.Row) (IndexEntry, error) {
	key := storage.NewKeyReader(row.Clustering)
	_ = key.ReadString()
	id := key.ReadUUID()
	if !key.Done() {
		return IndexEntry{}, Error.New("invalid index key %x: %v", []byte(row.Clustering), key.Err())
	}

	value := storage.NewKeyReader(row.Value)
	size, expires := value.ReadInt64(), value.ReadInt64()
	if !value.Done() {
		return IndexEntry{}, Error.New("invalid index value for %s: %v", id, value.Err())
	}

	entry := IndexEntry{
		RecordingID: id,
		Size:        size,
		Favorite:    t.set.Class == Favorited,
	}
	if expires != 0 {
		entry.Expiration = time.UnixMilli(expires).UTC()
	}
	return entry, nil
}
