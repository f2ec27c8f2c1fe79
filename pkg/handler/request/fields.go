package request

type ClusterField int

const (
	ClusterFieldClusterID ClusterField = iota
	ClusterFieldSize
	ClusterFieldChromosome
)

func (s ClusterField) String() string {
	switch s {
	case ClusterFieldSize:
		return "size"
	case ClusterFieldChromosome:
		return "chromosome"
	default:
		return "cluster_id"
	}
}

func NewClusterField(field string) ClusterField {
	switch field {
	case "size":
		return ClusterFieldSize
	case "chromosome":
		return ClusterFieldChromosome
	default:
		return ClusterFieldClusterID // default to cluster_id
	}
}
