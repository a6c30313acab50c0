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

package core

import (
	"fmt"
	"strings"
)

// SerializeTurns renders turns as "role: text" lines, oldest first.
// Its length is what the hard context cap is measured against.
func SerializeTurns(turns []ConversationTurn) string {
	var sb strings.Builder
	for _, turn := range turns {
		sb.WriteString(turn.Role.String())
		sb.WriteString(": ")
		sb.WriteString(turn.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Render produces the prompt body for generation: numbered sources,
// the conversation so far and the question.
func (p *ContextPayload) Render() string {
	var sb strings.Builder
	if p.NoMatch() {
		sb.WriteString("Sources: none matched this question.\n")
	} else {
		sb.WriteString("Sources:\n")
		for i, passage := range p.Passages {
			fmt.Fprintf(&sb, "[%d] %s\n%s\n\n", i+1, passage.Locator, passage.Text)
		}
	}
	if len(p.Window) > 0 {
		sb.WriteString("\nConversation:\n")
		sb.WriteString(SerializeTurns(p.Window))
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(p.Query)
	sb.WriteString("\n")
	return sb.String()
}
