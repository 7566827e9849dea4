package navconfig

import (
	"net/url"
	"strings"

	"github.com/MrSnakeDoc/cloudesk/internal/domain"
)

// Sites flattens the groups into navigation sites. Category holds the group
// name; Desktop.MergeNavigation resolves it to a category ID. Entries
// without an absolute http(s) URL are skipped.
func (f File) Sites() ([]domain.NavigationSite, error) {
	var sites []domain.NavigationSite
	for _, g := range f.NavConfig {
		for _, s := range g.Children {
			u, err := url.Parse(strings.TrimSpace(s.URL))
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
				continue
			}

			name := strings.TrimSpace(s.Name)
			if name == "" {
				name = siteName(u.Hostname())
			}
			sites = append(sites, domain.NavigationSite{
				Name:            name,
				URL:             u.String(),
				Src:             s.Src,
				BackgroundColor: s.BackgroundColor,
				Category:        strings.TrimSpace(g.Name),
			})
		}
	}

	if len(sites) == 0 {
		return nil, ErrNoSites
	}
	return sites, nil
}

// siteName is the first DNS label: "mail.example.com" -> "mail".
func siteName(hostname string) string {
	name, _, _ := strings.Cut(hostname, ".")
	return name
}
