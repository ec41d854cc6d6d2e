package catalog

// Default returns the MickFX plugin set bundled with the installer.
func Default() *Catalog {
	return MustNew(DefaultSpecs())
}

// DefaultSpecs returns the bundled specs in declaration order.
func DefaultSpecs() []PluginSpec {
	return []PluginSpec{
		{
			Name:        "Source Clone",
			Description: "Allows you to clone sources.",
			PageURL:     "https://obsproject.com/forum/resources/source-clone.1632/",
			DownloadURL: "https://obsproject.com/forum/resources/source-clone.1632/version/5627/download?file=104021",
			FileName:    "source-clone.pdb",
			Required:    true,
		},
		{
			Name:        "Obs-shaderfilter",
			Description: "Allows you to add shaders effects to sources.",
			Version:     "2.3.2",
			PageURL:     "https://obsproject.com/forum/resources/obs-shaderfilter.1736/",
			DownloadURL: "https://github.com/exeldro/obs-shaderfilter/releases/download/2.3.2/obs-shaderfilter-2.3.2-windows.zip",
			FileName:    "obs-shaderfilter.pdb",
			Required:    true,
		},
		{
			Name:        "Advanced Masks",
			Description: "Set up masks which you can change.",
			PageURL:     "https://obsproject.com/forum/resources/advanced-masks.1856/",
			DownloadURL: "https://obsproject.com/forum/resources/advanced-masks.1856/version/5424/download?file=101265",
			FileName:    "obs-advanced-masks.pdb",
			Required:    true,
		},
		{
			Name:        "Move Source",
			Description: "Move sources and change values.",
			PageURL:     "https://obsproject.com/forum/resources/move.913/",
			DownloadURL: "https://obsproject.com/forum/resources/move.913/version/5662/download?file=104546",
			FileName:    "move-transition.pdb",
			Required:    true,
		},
		{
			Name:        "Vintage Filter",
			Description: "Adds black & white or sepia effects to sources.",
			Version:     "1.0.0",
			PageURL:     "https://obsproject.com/forum/resources/vintage-filter.818/",
			DownloadURL: "https://github.com/cg2121/obs-vintage-filter/releases/download/1.0.0/obs-vintage-filter-1.0.0-windows-x64.zip",
			FileName:    "obs-vintage-filter.dll",
			Required:    false,
		},
	}
}
