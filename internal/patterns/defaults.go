package patterns

import "github.com/saeedalam/radscribe/pkg/types"

// Defaults returns the built-in pattern tables. Each call builds fresh
// slices so callers may modify the result without affecting other users.
func Defaults() types.PatternTables {
	return types.PatternTables{
		Modality: DefaultModalities(),
		BodyPart: DefaultBodyParts(),
	}
}

// DefaultModalities returns the imaging-modality groups in tie-break order.
func DefaultModalities() []types.KeywordGroup {
	return []types.KeywordGroup{
		{
			Label:    "CT",
			Keywords: []string{"ct", "ct scan", "computed tomography", "cat scan", "cta", "hounsfield"},
			Weight:   1.0,
		},
		{
			Label:    "MRI",
			Keywords: []string{"mri", "magnetic resonance", "t1", "t2", "flair", "gadolinium", "diffusion weighted"},
			Weight:   1.0,
		},
		{
			Label:    "X-Ray",
			Keywords: []string{"x-ray", "xray", "radiograph", "radiographs", "radiographic", "plain film", "ap and lateral"},
			Weight:   1.0,
		},
		{
			Label:    "Ultrasound",
			Keywords: []string{"ultrasound", "sonography", "sonographic", "doppler", "echogenic", "hypoechoic", "hyperechoic", "anechoic"},
			Weight:   1.0,
		},
		{
			Label:    "PET",
			Keywords: []string{"pet", "pet scan", "fdg", "suv", "hypermetabolic", "radiotracer uptake"},
			Weight:   1.2,
		},
		{
			Label:    "Mammography",
			Keywords: []string{"mammogram", "mammography", "mammographic", "bi-rads", "birads", "breast density", "tomosynthesis"},
			Weight:   1.5,
		},
		{
			Label:    "Fluoroscopy",
			Keywords: []string{"fluoroscopy", "fluoroscopic", "barium", "esophagram", "swallow study", "voiding cystourethrogram"},
			Weight:   1.2,
		},
		{
			Label:    "Nuclear Medicine",
			Keywords: []string{"nuclear medicine", "scintigraphy", "bone scan", "spect", "technetium", "hida", "radiotracer"},
			Weight:   1.2,
		},
	}
}

// DefaultBodyParts returns the anatomical-region groups in tie-break order.
func DefaultBodyParts() []types.KeywordGroup {
	return []types.KeywordGroup{
		{
			Label:    "Head",
			Keywords: []string{"head", "brain", "skull", "cranial", "intracranial", "cerebral", "sinus", "sinuses", "orbit", "orbits", "ventricles"},
			Weight:   1.0,
		},
		{
			Label:    "Neck",
			Keywords: []string{"neck", "thyroid", "carotid", "larynx", "pharynx", "parotid", "cervical lymph nodes"},
			Weight:   1.0,
		},
		{
			Label:    "Chest",
			Keywords: []string{"chest", "lung", "lungs", "thorax", "pulmonary", "pleural", "mediastinum", "mediastinal", "cardiac", "heart", "ribs"},
			Weight:   1.0,
		},
		{
			Label:    "Abdomen",
			Keywords: []string{"abdomen", "abdominal", "liver", "hepatic", "spleen", "pancreas", "kidney", "kidneys", "renal", "gallbladder", "bowel"},
			Weight:   1.0,
		},
		{
			Label:    "Pelvis",
			Keywords: []string{"pelvis", "pelvic", "bladder", "uterus", "ovary", "ovaries", "prostate", "adnexa"},
			Weight:   1.0,
		},
		{
			Label:    "Spine",
			Keywords: []string{"spine", "spinal", "vertebra", "vertebral", "lumbar", "cervical spine", "thoracic spine", "disc", "sacrum"},
			Weight:   1.0,
		},
		{
			Label:    "Upper Extremity",
			Keywords: []string{"shoulder", "elbow", "wrist", "hand", "humerus", "forearm", "radius", "ulna", "finger", "fingers", "clavicle"},
			Weight:   1.0,
		},
		{
			Label:    "Lower Extremity",
			Keywords: []string{"hip", "knee", "ankle", "foot", "femur", "tibia", "fibula", "toe", "toes", "leg"},
			Weight:   1.0,
		},
	}
}
