package project

// VolumeMountType distinguishes the three mount shapes §3/§4.4 describe.
type VolumeMountType string

const (
	MountTypeVolume VolumeMountType = "volume"
	MountTypeBind   VolumeMountType = "bind"
	MountTypeTmpfs  VolumeMountType = "tmpfs"
)

// VolumeSpec is one declared mount on a service. Merge-by-target (§4.1):
// two VolumeSpecs with the same Target are the same logical mount and the
// later layer wins in full, not field-by-field.
type VolumeSpec struct {
	Type VolumeMountType

	// Source is a volume name (Type==volume), a host path (Type==bind),
	// or empty (Type==tmpfs).
	Source string
	Target string

	ReadOnly bool

	// Anonymous is true for a bare container-path volume entry with no
	// Source (`- /data`); its engine-assigned volume name must be
	// preserved across recreate (§4.4 "anonymous-volume preservation").
	Anonymous bool

	Bind   *BindOptions
	Volume *VolumeOptions
	Tmpfs  *TmpfsOptions
}

// BindOptions mirrors the bind-mount-specific knobs.
type BindOptions struct {
	Propagation    string
	CreateHostPath bool
	SELinux        string
}

// VolumeOptions mirrors named-volume-specific knobs.
type VolumeOptions struct {
	NoCopy bool
	Labels map[string]string
}

// TmpfsOptions mirrors tmpfs-specific knobs.
type TmpfsOptions struct {
	Size int64
	Mode *uint32
}

// Key returns the merge-by-target identity for this spec.
func (v VolumeSpec) Key() string {
	return v.Target
}
