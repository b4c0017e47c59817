/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/blacktop/postkit/internal/publish"
	"gopkg.in/yaml.v3"
)

// Batch is the --file format: a user and the posts generated for them.
//
//	user: acme
//	posts:
//	  - platform: linkedin
//	    caption: We're hiring
//	    hashtags: ["#jobs"]
//	    image_url: https://example.com/team.png
type Batch struct {
	User  string         `yaml:"user"`
	Posts []publish.Post `yaml:"posts"`
}

func loadBatch(path string) (Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Batch{}, fmt.Errorf("read batch: %w", err)
	}
	return parseBatch(data)
}

// parseBatch accepts either a Batch document or a bare list of posts.
func parseBatch(data []byte) (Batch, error) {
	var batch Batch
	if err := decodeStrict(data, &batch); err != nil {
		var posts []publish.Post
		if listErr := decodeStrict(data, &posts); listErr != nil {
			return Batch{}, fmt.Errorf("parse batch: %w", err)
		}
		batch = Batch{Posts: posts}
	}

	if len(batch.Posts) == 0 {
		return Batch{}, errors.New("batch has no posts")
	}
	for i, p := range batch.Posts {
		if p.Caption == "" {
			return Batch{}, fmt.Errorf("post %d has no caption", i+1)
		}
		if p.Platform != "" {
			platform, err := publish.ParsePlatform(string(p.Platform))
			if err != nil {
				return Batch{}, fmt.Errorf("post %d: %w", i+1, err)
			}
			batch.Posts[i].Platform = platform
		}
	}
	return batch, nil
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}
