package chunk

import (
	"math"
)

// CosineSimilarity 计算余弦相似度。
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64

	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// SimilarityMatrix 计算块列表的全量两两相似度矩阵。
//
// 结果为对称矩阵，对角线为 1。适用于去重分组这类小规模集合；
// 超大分组应改用逐行增量比较以避免 O(n²) 内存。
func SimilarityMatrix(chunks []Chunk) [][]float32 {
	n := len(chunks)
	matrix := make([][]float32, n)
	for i := range matrix {
		matrix[i] = make([]float32, n)
		matrix[i][i] = 1.0
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := CosineSimilarity(chunks[i].Vector, chunks[j].Vector)
			matrix[i][j] = sim
			matrix[j][i] = sim
		}
	}

	return matrix
}
