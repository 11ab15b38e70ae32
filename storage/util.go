// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package storage

// NextKey returns the successive key.
func NextKey(key Key) Key {
	return append(append(key[:0:0], key...), 0)
}

// PrefixLimit returns the smallest key that is larger than every key
// starting with prefix, nil when no such key exists.
func PrefixLimit(prefix Key) Key {
	limit := CloneKey(prefix)
	for i := len(limit) - 1; i >= 0; i-- {
		if limit[i] != 0xFF {
			limit[i]++
			return limit[:i+1]
		}
	}
	return nil
}

// CloneKey creates a copy of key.
func CloneKey(key Key) Key { return append(key[:0:0], key...) }

// CloneValue creates a copy of value.
func CloneValue(value Value) Value { return append(value[:0:0], value...) }

// CloneRow creates a deep copy of row.
func CloneRow(row Row) Row {
	return Row{
		Clustering: CloneKey(row.Clustering),
		Value:      CloneValue(row.Value),
	}
}

// CloneRows creates a deep copy of rows.
func CloneRows(rows []Row) []Row {
	result := make([]Row, len(rows))
	for i, row := range rows {
		result[i] = CloneRow(row)
	}
	return result
}
