/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"

	"github.com/valpere/storitran/internal/translator"
)

// buildService constructs the whole-page translation service named by the
// --service flag.
func buildService(name, ollamaBaseURL, ollamaModel string) (translator.PageService, error) {
	switch name {
	case "google":
		return translator.NewGoogleService(), nil
	case "ollama":
		return translator.NewOllamaTranslator(ollamaBaseURL, ollamaModel), nil
	default:
		return nil, fmt.Errorf("unknown service: %s (supported: google, ollama)", name)
	}
}
