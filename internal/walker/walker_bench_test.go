package walker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func BenchmarkWalker_Walk(b *testing.B) {
	// Create a large directory structure for benchmarking
	tmpDir := b.TempDir()
	createLargeDirStructure(b, tmpDir, 20, 10, 3)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		count := 0
		err := New(DefaultConfig()).Walk(context.Background(), tmpDir, func(string) error {
			count++
			return nil
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}

func createLargeDirStructure(b *testing.B, root string, dirs, filesPerDir, depth int) {
	if depth <= 0 {
		return
	}

	for i := 0; i < dirs; i++ {
		dirPath := filepath.Join(root, fmt.Sprintf("dir_%d", i))
		if err := os.MkdirAll(dirPath, 0755); err != nil {
			b.Fatal(err)
		}

		for j := 0; j < filesPerDir; j++ {
			name := fmt.Sprintf("file_%d.txt", j)
			if j%3 == 0 {
				name = fmt.Sprintf("file_%d.log", j)
			}
			if err := os.WriteFile(filepath.Join(dirPath, name), []byte("test content"), 0644); err != nil {
				b.Fatal(err)
			}
		}

		createLargeDirStructure(b, dirPath, dirs/2, filesPerDir/2, depth-1)
	}
}
