package thesaurus

// defaultEntries covers common psychiatric and general-health conditions
// between Chinese clinical terms and English names or instrument abbreviations.
var defaultEntries = []Entry{
	{Key: "抑郁", Values: []string{"depression", "phq", "beck", "hamilton"}},
	{Key: "焦虑", Values: []string{"anxiety", "gad", "hamilton", "sas"}},
	{Key: "失眠", Values: []string{"insomnia", "sleep", "psqi", "isi"}},
	{Key: "睡眠", Values: []string{"sleep", "psqi", "epworth"}},
	{Key: "认知", Values: []string{"cognitive", "cognition", "mmse", "moca"}},
	{Key: "痴呆", Values: []string{"dementia", "alzheimer", "mmse", "cdr"}},
	{Key: "自闭", Values: []string{"autism", "asd", "ados", "cars"}},
	{Key: "孤独症", Values: []string{"autism", "asd", "ados", "cars"}},
	{Key: "多动", Values: []string{"adhd", "attention deficit", "conners", "snap"}},
	{Key: "注意缺陷", Values: []string{"adhd", "attention deficit", "conners"}},
	{Key: "强迫", Values: []string{"ocd", "obsessive compulsive", "y-bocs"}},
	{Key: "精神分裂", Values: []string{"schizophrenia", "psychosis", "panss", "bprs"}},
	{Key: "双相", Values: []string{"bipolar", "mania", "ymrs", "mdq"}},
	{Key: "躁狂", Values: []string{"mania", "bipolar", "ymrs"}},
	{Key: "创伤", Values: []string{"ptsd", "trauma", "pcl", "ies"}},
	{Key: "生活质量", Values: []string{"quality of life", "qol", "sf-36", "whoqol"}},
	{Key: "疼痛", Values: []string{"pain", "vas", "bpi", "mcgill"}},
	{Key: "自杀", Values: []string{"suicide", "suicidal ideation", "c-ssrs", "bss"}},
	{Key: "压力", Values: []string{"stress", "pss", "perceived stress"}},
	{Key: "酒精", Values: []string{"alcohol", "audit", "cage"}},
	{Key: "饮食", Values: []string{"eating disorder", "eat-26", "ede-q"}},
	{Key: "产后", Values: []string{"postpartum", "postnatal", "epds"}},
}

// Default returns the built-in thesaurus.
func Default() *Thesaurus {
	return MustNew(defaultEntries)
}
