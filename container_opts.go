package caomtools

// Option configures a container constructor.
type Option func(*containerOptions)

type containerOptions struct {
	filter     FilterFunc
	fileID     FileIDFunc
	recursive  bool
	headerOnly bool
}

func applyOptions(opts []Option) containerOptions {
	o := containerOptions{fileID: DefaultFileID}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// include applies the configured filter to a base file name.
func (o *containerOptions) include(filename string) bool {
	return o.filter == nil || o.filter(filename)
}

// WithFilter restricts container membership to file names accepted by f.
// Filters are applied to base names at construction time.
func WithFilter(f FilterFunc) Option {
	return func(o *containerOptions) {
		o.filter = f
	}
}

// WithFileID sets the function deriving member IDs from file names. The
// default is DefaultFileID.
func WithFileID(f FileIDFunc) Option {
	return func(o *containerOptions) {
		o.fileID = f
	}
}

// WithRecursive makes NewDirectoryContainer descend into subdirectories.
// Other constructors ignore this option.
func WithRecursive() Option {
	return func(o *containerOptions) {
		o.recursive = true
	}
}

// WithHeaderOnly makes NewADContainer fetch only the primary FITS header
// of each member instead of the full file. Other constructors ignore
// this option.
func WithHeaderOnly() Option {
	return func(o *containerOptions) {
		o.headerOnly = true
	}
}
