package partitions

import (
	"fmt"
	"math"
)

// PartitionBuilder splits the elements into contiguous blocks, dealing out
// whole batches as evenly as possible
type PartitionBuilder struct {
	// Mesh connectivity
	Mesh *MeshConnectivity

	// Partitioning parameters. NumPartitions takes precedence over
	// TargetPartitionSize when set.
	NumPartitions       int
	TargetPartitionSize int // Desired elements per partition
	BatchSize           int // Block boundaries fall on multiples of BatchSize
}

// MeshConnectivity provides the mesh topology needed for partitioning
type MeshConnectivity struct {
	NumElements int
}

// BuildPartitions creates a partition layout from mesh connectivity
func (pb *PartitionBuilder) BuildPartitions() (*PartitionLayout, error) {
	if pb.Mesh == nil || pb.Mesh.NumElements < 0 {
		return nil, fmt.Errorf("partition builder needs a mesh with a non-negative element count")
	}
	if pb.NumPartitions <= 0 && pb.TargetPartitionSize <= 0 {
		return nil, fmt.Errorf("partition builder needs NumPartitions or TargetPartitionSize")
	}

	// Determine number of partitions needed
	numPartitions := pb.calculateNumPartitions()

	// Partition the elements
	eToP := pb.partitionElements(numPartitions)

	// Create partition structures
	partitions := pb.createPartitions(eToP, numPartitions)

	// Calculate KpartMax
	kpartMax := pb.calculateKpartMax(partitions)

	// Set MaxElements for all partitions
	for i := range partitions {
		partitions[i].MaxElements = kpartMax
	}

	layout := &PartitionLayout{
		Partitions:    partitions,
		KpartMax:      kpartMax,
		TotalElements: pb.Mesh.NumElements,
		NumPartitions: numPartitions,
		EToP:          eToP,
	}

	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}

	return layout, nil
}

// calculateNumPartitions determines the partition count; no partition is
// left empty and at least one partition is created.
func (pb *PartitionBuilder) calculateNumPartitions() int {
	units := pb.Mesh.NumElements
	if pb.batchSize() > 1 {
		units = (units + pb.batchSize() - 1) / pb.batchSize()
	}

	numPartitions := pb.NumPartitions
	if numPartitions <= 0 {
		numPartitions = int(math.Ceil(float64(pb.Mesh.NumElements) / float64(pb.TargetPartitionSize)))
	}
	if numPartitions > units {
		numPartitions = units
	}
	if numPartitions < 1 {
		numPartitions = 1
	}
	return numPartitions
}

func (pb *PartitionBuilder) batchSize() int {
	if pb.BatchSize < 1 {
		return 1
	}
	return pb.BatchSize
}

// partitionElements assigns whole batches to partitions, the first
// partitions taking one extra batch each
func (pb *PartitionBuilder) partitionElements(numPartitions int) []int {
	eToP := make([]int, pb.Mesh.NumElements)
	nb := pb.batchSize()
	batches := (pb.Mesh.NumElements + nb - 1) / nb
	base, extra := batches/numPartitions, batches%numPartitions
	batch := 0
	for p := 0; p < numPartitions; p++ {
		count := base
		if p < extra {
			count++
		}
		for b := batch; b < batch+count; b++ {
			for i := b * nb; i < (b+1)*nb && i < pb.Mesh.NumElements; i++ {
				eToP[i] = p
			}
		}
		batch += count
	}
	return eToP
}

// createPartitions builds partition structures from element assignments
func (pb *PartitionBuilder) createPartitions(eToP []int, numPartitions int) []Partition {
	partitions := make([]Partition, numPartitions)

	for i := range partitions {
		partitions[i] = Partition{
			ID:       i,
			Elements: make([]int, 0),
		}
	}

	for elem, part := range eToP {
		partitions[part].Elements = append(partitions[part].Elements, elem)
		partitions[part].NumElements++
	}

	return partitions
}

// calculateKpartMax finds maximum elements across all partitions
func (pb *PartitionBuilder) calculateKpartMax(partitions []Partition) int {
	kpartMax := 0
	for _, p := range partitions {
		if p.NumElements > kpartMax {
			kpartMax = p.NumElements
		}
	}
	return kpartMax
}
