// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"github.com/poiesic/docent/core"
)

// Decoded records are normalized so they compare equal to what was stored:
// times come back in UTC (the zero time stays zero) and empty collections
// come back nil.

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalContentUnit serializes a ContentUnit to bytes.
func MarshalContentUnit(unit *core.ContentUnit) []byte {
	buf := make([]byte, core.ContentUnitMUS.Size(*unit))
	core.ContentUnitMUS.Marshal(*unit, buf)
	return buf
}

// UnmarshalContentUnit deserializes a ContentUnit from bytes.
func UnmarshalContentUnit(data []byte) (*core.ContentUnit, error) {
	unit, _, err := core.ContentUnitMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if len(unit.Vector) == 0 {
		unit.Vector = nil
	}
	unit.Recency = unit.Recency.UTC()
	unit.InsertedAt = unit.InsertedAt.UTC()
	return &unit, nil
}

// MarshalTurn serializes a ConversationTurn to bytes.
func MarshalTurn(turn *core.ConversationTurn) []byte {
	buf := make([]byte, core.ConversationTurnMUS.Size(*turn))
	core.ConversationTurnMUS.Marshal(*turn, buf)
	return buf
}

// UnmarshalTurn deserializes a ConversationTurn from bytes.
func UnmarshalTurn(data []byte) (*core.ConversationTurn, error) {
	turn, _, err := core.ConversationTurnMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if len(turn.Citations) == 0 {
		turn.Citations = nil
	}
	if len(turn.Metadata) == 0 {
		turn.Metadata = nil
	}
	turn.Timestamp = turn.Timestamp.UTC()
	return &turn, nil
}

// MarshalManifest serializes an IndexManifest to bytes.
func MarshalManifest(manifest *core.IndexManifest) []byte {
	buf := make([]byte, core.IndexManifestMUS.Size(*manifest))
	core.IndexManifestMUS.Marshal(*manifest, buf)
	return buf
}

// UnmarshalManifest deserializes an IndexManifest from bytes.
func UnmarshalManifest(data []byte) (*core.IndexManifest, error) {
	manifest, _, err := core.IndexManifestMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if len(manifest.UnitIds) == 0 {
		manifest.UnitIds = nil
	}
	manifest.UpdatedAt = manifest.UpdatedAt.UTC()
	return &manifest, nil
}
