package project

// Clone returns a deep copy of the project. The copy shares no pointers or
// slices with p.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	c.Style = cloneStyle(p.Style)
	if p.Intro != nil {
		v := *p.Intro
		c.Intro = &v
	}
	if p.Outro != nil {
		v := *p.Outro
		c.Outro = &v
	}
	if p.Watermark != nil {
		v := *p.Watermark
		c.Watermark = &v
	}
	if p.Scenes != nil {
		c.Scenes = make([]Scene, len(p.Scenes))
		for i := range p.Scenes {
			c.Scenes[i] = p.Scenes[i].Clone()
		}
	}
	return &c
}

// Clone returns a deep copy of the scene.
func (s Scene) Clone() Scene {
	c := s
	if s.Transition != nil {
		t := *s.Transition
		c.Transition = &t
	}
	c.Style = cloneStyle(s.Style)
	return c
}

func cloneStyle(s *TextStyle) *TextStyle {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
