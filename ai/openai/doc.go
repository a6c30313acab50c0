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

// Package openai serves embeddings and grounded answers from
// OpenAI-compatible endpoints (OpenAI, Ollama, LocalAI, vLLM) through
// langchaingo.
//
// The generator sends the assembled context as numbered sources and asks
// the model to cite them as [n]; those references are mapped back to
// content unit IDs with ai.CitedUnits.
//
//	provider, err := openai.NewProvider(ai.NewConfig(
//	    ai.WithHost("http://localhost:11434"), // /v1 is appended
//	    ai.WithChatModel("qwen2.5:3b"),
//	))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	answer, err := provider.Generator().Generate(ctx, payload)
package openai
