package navconfig

// File is the navigation import format:
//
//	navConfig:
//	  - name: Work
//	    children:
//	      - name: Mail
//	        url: https://mail.example.com
type File struct {
	NavConfig []Group `yaml:"navConfig"`
}

type Group struct {
	Name     string `yaml:"name"`
	Children []Site `yaml:"children"`
}

type Site struct {
	Name            string `yaml:"name"`
	URL             string `yaml:"url"`
	Src             string `yaml:"src,omitempty"`
	BackgroundColor string `yaml:"backgroundColor,omitempty"`
}

// HomepageServices is a Homepage services.yaml: a list of groups, each
// mapping a group name to a list of single-key service maps.
type HomepageServices []map[string][]map[string]HomepageService

type HomepageService struct {
	Href        string `yaml:"href"`
	Icon        string `yaml:"icon,omitempty"`
	Description string `yaml:"description,omitempty"`
}
