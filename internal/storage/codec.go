package storage

import (
	"encoding/json"
	"errors"

	"molevo/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeCacheRecord(r model.CacheRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeCacheRecord(data []byte) (model.CacheRecord, error) {
	var record model.CacheRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.CacheRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.CacheRecord{}, err
	}
	return record, nil
}

func EncodeFitnessHistory(history []float64) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeFitnessHistory(data []byte) ([]float64, error) {
	var history []float64
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func EncodeGenerationRecords(records []model.GenerationRecord) ([]byte, error) {
	return json.Marshal(records)
}

func DecodeGenerationRecords(data []byte) ([]model.GenerationRecord, error) {
	var records []model.GenerationRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func EncodeTopCandidates(top []model.TopCandidateRecord) ([]byte, error) {
	return json.Marshal(top)
}

func DecodeTopCandidates(data []byte) ([]model.TopCandidateRecord, error) {
	var top []model.TopCandidateRecord
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}
	return top, nil
}

func EncodeLineage(lineage []model.LineageRecord) ([]byte, error) {
	return json.Marshal(lineage)
}

func DecodeLineage(data []byte) ([]model.LineageRecord, error) {
	var lineage []model.LineageRecord
	if err := json.Unmarshal(data, &lineage); err != nil {
		return nil, err
	}
	return lineage, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
