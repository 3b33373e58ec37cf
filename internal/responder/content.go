package responder

import (
	"fmt"
	"strings"
)

// Follow-up labels shared by several records.
const (
	LabelSkillsTech = "Skills & Tech"
	LabelExperience = "Experience"
	LabelProjects   = "Projects"
	LabelContact    = "Contact Info"
	LabelEducation  = "Education"
	LabelGitHub     = "GitHub"
	LabelResume     = "Download Resume"
)

type proficiency struct {
	Name     string
	Category string
	Level    int
}

// proficiencies backs the generated per-technology skill record. Order
// matters: longer names that contain shorter ones come first. A leading
// space anchors a trigger to the start of a word.
var proficiencies = []struct {
	trigger string
	proficiency
}{
	{"pyspark", proficiency{"PySpark", "Data Engineering", 90}},
	{"hadoop", proficiency{"Hadoop", "Data Engineering", 85}},
	{" emr", proficiency{"AWS EMR", "Data Engineering", 90}},
	{"airflow", proficiency{"Airflow", "Data Engineering", 80}},
	{" aws", proficiency{"AWS", "Cloud & DevOps", 90}},
	{"docker", proficiency{"Docker", "Cloud & DevOps", 85}},
	{"terraform", proficiency{"Terraform", "Cloud & DevOps", 75}},
	{"python", proficiency{"Python", "Programming", 95}},
	{"javascript", proficiency{"JavaScript", "Programming", 80}},
	{"java", proficiency{"Java", "Programming", 85}},
	{"bash", proficiency{"Bash", "Programming", 80}},
	{"postgres", proficiency{"PostgreSQL", "Databases", 85}},
	{"mysql", proficiency{"MySQL", "Databases", 90}},
	{"redshift", proficiency{"Redshift", "Databases", 80}},
	{"sap hana", proficiency{"SAP HANA", "Databases", 75}},
	{"sql", proficiency{"SQL", "Programming", 90}},
	{"scikit", proficiency{"Scikit-learn", "Machine Learning", 90}},
	{"sklearn", proficiency{"Scikit-learn", "Machine Learning", 90}},
	{"xgboost", proficiency{"XGBoost", "Machine Learning", 90}},
	{"tensorflow", proficiency{"TensorFlow", "Machine Learning", 80}},
	{"shapley", proficiency{"SHAP", "Machine Learning", 85}},
	{" shap ", proficiency{"SHAP", "Machine Learning", 85}},
	{" shap?", proficiency{"SHAP", "Machine Learning", 85}},
	{" shap,", proficiency{"SHAP", "Machine Learning", 85}},
	{"mlflow", proficiency{"MLflow", "Machine Learning", 80}},
	{"power bi", proficiency{"Power BI", "Visualization", 90}},
	{"tableau", proficiency{"Tableau", "Visualization", 75}},
	{"streamlit", proficiency{"Streamlit", "Visualization", 85}},
}

func proficiencyTriggers() []string {
	out := make([]string, len(proficiencies))
	for i, p := range proficiencies {
		out[i] = p.trigger
	}
	return out
}

func proficiencyResponse(match string) Response {
	for _, p := range proficiencies {
		if p.trigger != match {
			continue
		}
		return Response{
			Body: fmt.Sprintf("🧰 **%s** (%s)\n\nProficiency: **%d%%** %s\n\n"+
				"Saitej uses %s day to day and it shows up across his projects and professional roles.",
				p.Name, p.Category, p.Level, meter(p.Level), p.Name),
			FollowUps: []string{LabelProjects, LabelExperience, LabelSkillsTech, LabelContact},
		}
	}
	panic(fmt.Sprintf("no proficiency entry for trigger %q", match))
}

func meter(level int) string {
	filled := level / 10
	return strings.Repeat("▰", filled) + strings.Repeat("▱", 10-filled)
}

// DefaultTable returns the built-in content for the portfolio assistant.
func DefaultTable() Table {
	return Table{
		Window: DefaultWindow,
		Welcome: Response{
			Body:      "Hi! I'm your AI assistant. I can help you learn more about Saitej's skills, experience, and projects. What would you like to know?",
			FollowUps: []string{LabelSkillsTech, LabelExperience, LabelProjects, LabelContact},
		},
		Rules: []Rule{
			{
				Name:     "greeting",
				Triggers: []string{"hello", " hey ", " hey!", " hey,", " hi ", " hi!", " hi,", "greetings", "good morning", "good afternoon", "good evening", "howdy"},
				Response: Response{
					Body: "👋 Hello there! I'm Saitej's portfolio assistant.\n\n" +
						"Saitej is a **Generative AI Engineer** with 4.5+ years of experience building LLM-powered systems, " +
						"RAG pipelines and production ML platforms.\n\nWhat would you like to explore?",
					FollowUps: []string{LabelSkillsTech, LabelExperience, LabelProjects, LabelContact},
				},
			},
			{
				Name:     "skills",
				Triggers: []string{"skill", "technology", "tech", "programming"},
				Response: Response{
					Body: "🚀 **Saitej's Technical Arsenal:**\n\n" +
						"**Generative AI:** LLMs, RAG, LangChain, multi-agent orchestration, OpenAI APIs, Azure AI\n" +
						"**Deep Learning:** Transformers, GANs, TensorFlow, PyTorch\n" +
						"**Vector Databases:** Pinecone, Weaviate, FAISS\n" +
						"**Programming:** Python, Java, SQL, Bash\n" +
						"**Data Engineering:** PySpark, Hadoop, AWS EMR, Airflow\n" +
						"**Cloud & MLOps:** AWS SageMaker, GCP Vertex AI, Azure ML, Kubeflow, MLflow, Docker, Terraform\n" +
						"**Explainability & Apps:** SHAP, LIME, FastAPI, Streamlit\n\n" +
						"Ask about any of these for details, e.g. \"what is RAG\" or \"how good is he with Python\".",
					FollowUps: []string{LabelExperience, LabelProjects, LabelEducation, LabelContact},
				},
				Subtopics: []Rule{
					{
						Name:     "rag",
						Triggers: []string{" rag ", " rag?", " rag,", " rag.", "retrieval-augmented", "retrieval augmented"},
						Response: Response{
							Body: "📚 **Retrieval-Augmented Generation (RAG):**\n\n" +
								"RAG grounds an LLM's answer in your own documents: content is chunked and embedded into a vector store, " +
								"the most relevant chunks are retrieved for each question and passed to the model as context.\n\n" +
								"Saitej builds RAG pipelines with **LangChain**, **Pinecone**, **Weaviate** and **FAISS**, " +
								"tuning chunking, hybrid retrieval and re-ranking to cut hallucinations in enterprise assistants.",
							FollowUps: []string{"Vector Databases", "LLMs", LabelProjects, LabelContact},
						},
					},
					{
						Name:     "llm",
						Triggers: []string{"llm", "large language model", "gpt", "openai", "prompt"},
						Response: Response{
							Body: "🧠 **Large Language Models:**\n\n" +
								"Saitej works hands-on with GPT-family models through the **OpenAI** and **Azure OpenAI** APIs " +
								"as well as open models served on **AWS SageMaker** and **GCP Vertex AI**.\n\n" +
								"• Prompt engineering and structured outputs\n• Evaluation and guardrails\n• Cost and latency optimization in production",
							FollowUps: []string{"What is RAG?", "Fine-tuning", LabelProjects, LabelContact},
						},
					},
					{
						Name:     "agents",
						Triggers: []string{"langchain", "langgraph", "agent", "crewai", "autogen", "orchestration"},
						Response: Response{
							Body: "🤝 **LangChain & Multi-Agent Systems:**\n\n" +
								"Saitej designs multi-agent workflows where specialised agents plan, call tools and hand work to each other. " +
								"He uses **LangChain** and **LangGraph** for orchestration, memory and tool integration.",
							FollowUps: []string{"What is RAG?", "LLMs", LabelProjects, LabelContact},
						},
					},
					{
						Name:     "fine-tuning",
						Triggers: []string{"fine-tun", "fine tun", "finetun", "peft", "qlora"},
						Response: Response{
							Body: "🎯 **Fine-tuning:**\n\n" +
								"When prompting is not enough, Saitej adapts models to a domain with parameter-efficient fine-tuning (PEFT, QLoRA), " +
								"tracks experiments in **MLflow** and ships the results through **Kubeflow** pipelines.",
							FollowUps: []string{"LLMs", "MLOps", LabelProjects, LabelContact},
						},
					},
					{
						Name:     "vector-databases",
						Triggers: []string{"vector", "pinecone", "weaviate", "faiss", "embedding"},
						Response: Response{
							Body: "🗂️ **Vector Databases:**\n\n" +
								"Embeddings turn text into points in a high-dimensional space; a vector database finds the nearest ones fast.\n\n" +
								"Saitej has run **Pinecone**, **Weaviate** and **FAISS** behind semantic search and RAG systems, " +
								"including metadata filtering and index tuning for recall and latency.",
							FollowUps: []string{"What is RAG?", LabelProjects, LabelExperience, LabelContact},
						},
					},
					{
						Name:     "deep-learning",
						Triggers: []string{"transformer", "attention mechanism", "generative adversarial", " gan ", " gan?", " gans"},
						Response: Response{
							Body: "🔬 **Transformers & GANs:**\n\n" +
								"**Transformers** use self-attention to model long-range context and power today's LLMs. " +
								"**GANs** pit a generator against a discriminator to synthesise realistic data.\n\n" +
								"Saitej has built both with **TensorFlow** and **PyTorch**, improving model accuracy by 12% on his deep learning work.",
							FollowUps: []string{"LLMs", LabelProjects, LabelSkillsTech, LabelContact},
						},
					},
					{
						Name:     "proficiency",
						Triggers: proficiencyTriggers(),
						Generate: proficiencyResponse,
					},
				},
			},
			{
				Name:     "experience",
				Triggers: []string{"experience", "work", "job", "career", "employ"},
				Response: Response{
					Body: "💼 **Professional Journey:**\n\n" +
						"**Data Integrator @ Intelli Data Systems** (Mar 2021 - Mar 2023, Hyderabad)\n" +
						"• Built and automated data integration pipelines across enterprise systems\n" +
						"• Productionised ML and analytics workloads on cloud infrastructure\n\n" +
						"**Backend Developer @ Wipro** (Apr 2020 - Aug 2021)\n" +
						"• Java Spring Boot services for an interview scheduling platform\n" +
						"• Cut scheduling time by 50%\n\n" +
						"**Data Science Intern @ Nexus AI Labs** (Sep 2019 - Jan 2020)\n" +
						"• PySpark on AWS EMR over 8M+ records\n" +
						"• XGBoost churn model with 87% recall and 0.91 AUC",
					FollowUps: []string{LabelSkillsTech, LabelProjects, LabelEducation, LabelContact},
				},
			},
			{
				Name:     "education",
				Triggers: []string{"education", "degree", "university", "school", "college", "study", "studied"},
				Response: Response{
					Body: "🎓 **Academic Background:**\n\n" +
						"**M.S. Data Science** - New Jersey Institute of Technology, Ying Wu College of Computing (2023 - 2024)\n" +
						"• Focus: machine learning, deep learning and big data systems\n\n" +
						"**B.Tech Electronics & Communication Engineering** - Gandhi Institute of Technology and Management (2016 - 2020)",
					FollowUps: []string{LabelSkillsTech, LabelExperience, LabelProjects, LabelContact},
				},
			},
			{
				Name:     "projects",
				Triggers: []string{"project", "portfolio", "build", "built"},
				Response: Response{
					Body: "🛠️ **Featured Projects:**\n\n" +
						"**1. Advanced Deep Learning Models** - Transformers and GANs, +12% accuracy\n" +
						"**2. Marketing Optimization with ML** - 85% AUC, +23% conversion\n" +
						"**3. Cloud-Based Distributed ML** - 65% less training time, 40% lower cost\n" +
						"**4. Wine Quality Prediction** - 89% accuracy\n" +
						"**5. Customer Churn Prediction** - PySpark and XGBoost on AWS EMR\n" +
						"**6. Interview Scheduling Platform** - Spring Boot backend, 50% faster scheduling",
					FollowUps: []string{LabelSkillsTech, LabelExperience, LabelGitHub, LabelContact},
				},
			},
			{
				Name:     "contact",
				Triggers: []string{"contact", "email", "reach", "connect", "hire", "linkedin"},
				Response: Response{
					Body: "📞 **Get in Touch:**\n\n" +
						"**Email:** Bodapatisaitej@gmail.com\n" +
						"**LinkedIn:** linkedin.com/in/tejchowdary\n" +
						"**GitHub:** github.com/saitejchowdary\n" +
						"**Location:** Houston, Texas, USA\n\n" +
						"Saitej is always happy to talk about new opportunities, GenAI projects and collaborations. " +
						"He typically responds within 24 hours! 🚀",
					FollowUps: []string{LabelResume, LabelGitHub, LabelSkillsTech, LabelProjects},
				},
			},
			{
				Name:     "location",
				Triggers: []string{"location", "where", "based", "area", "relocat", "remote"},
				Response: Response{
					Body: "📍 **Location & Availability:**\n\n" +
						"**Current Location:** Houston, Texas, USA\n" +
						"**Time Zone:** Central Time (CT)\n\n" +
						"**Work Preferences:**\n• Remote-first opportunities\n• Hybrid arrangements\n• Open to relocation for the right role",
					FollowUps: []string{LabelContact, LabelExperience, LabelSkillsTech, LabelProjects},
				},
			},
			{
				Name:     "explainers",
				Triggers: []string{"artificial intelligence", " ai ", " ai?", " ai,", " ml ", " ml?", " ml,"},
				Response: Response{
					Body: "🤖 **AI at a Glance:**\n\n" +
						"Artificial intelligence covers systems that learn patterns from data to predict, classify or generate. " +
						"Saitej works across the stack:\n\n" +
						"• **Generative AI** - LLMs, RAG and agents\n" +
						"• **Machine Learning** - classical models with explainability (SHAP, LIME)\n" +
						"• **MLOps** - taking models to production on AWS, GCP and Azure\n" +
						"• **Data Engineering** - the pipelines that feed all of it",
					FollowUps: []string{"Generative AI", "MLOps", LabelProjects, LabelContact},
				},
				Subtopics: []Rule{
					{
						Name:     "generative-ai",
						Triggers: []string{"generative", "genai", "gen ai"},
						Response: Response{
							Body: "✨ **Generative AI:**\n\n" +
								"Generative models produce new text, images or data rather than just labels. " +
								"Saitej's GenAI work spans LLM applications, RAG over enterprise knowledge bases, " +
								"multi-agent orchestration and GAN-based data synthesis.",
							FollowUps: []string{"What is RAG?", "LLMs", LabelProjects, LabelContact},
						},
					},
					{
						Name:     "mlops",
						Triggers: []string{"mlops", "kubeflow", "sagemaker", "vertex", "deploy"},
						Response: Response{
							Body: "⚙️ **MLOps:**\n\n" +
								"MLOps is the discipline of shipping and operating models reliably: versioned data and models, " +
								"automated training pipelines, monitoring and rollback.\n\n" +
								"Saitej uses **Kubeflow**, **MLflow**, **Docker** and **Terraform** with " +
								"**AWS SageMaker**, **GCP Vertex AI** and **Azure ML**.",
							FollowUps: []string{LabelSkillsTech, LabelProjects, LabelExperience, LabelContact},
						},
					},
					{
						Name:     "data-engineering",
						Triggers: []string{"data", "etl", "pipeline", "warehouse", "spark"},
						Response: Response{
							Body: "📊 **Data Engineering:**\n\n" +
								"Good models need good data. Saitej builds ETL pipelines with **PySpark**, **Hadoop** and **AWS EMR**, " +
								"orchestrates them with **Airflow** and lands them in **Redshift**, **PostgreSQL** and **SAP HANA**.\n\n" +
								"At Nexus AI Labs he processed 8M+ records on EMR for churn modelling.",
							FollowUps: []string{LabelExperience, LabelProjects, LabelSkillsTech, LabelContact},
						},
					},
					{
						Name:     "machine-learning",
						Triggers: []string{"machine learning", "deep learning", "neural", "model"},
						Response: Response{
							Body: "📈 **Machine Learning:**\n\n" +
								"Machine learning fits models to historical data so they can predict new cases. " +
								"Saitej's toolbox includes **Scikit-learn**, **XGBoost** and **TensorFlow**, " +
								"with **SHAP** and **LIME** to explain predictions to stakeholders.",
							FollowUps: []string{LabelProjects, LabelSkillsTech, LabelExperience, LabelContact},
						},
					},
				},
			},
			{
				Name:     "resume",
				Triggers: []string{"resume", "résumé", "cv", "download"},
				Response: Response{
					Body: "📄 **Resume:**\n\n" +
						"Saitej's resume is available as a PDF from the **Download Resume** button on the site.\n\n" +
						"**Highlights:**\n• 4.5+ years across GenAI, ML and data engineering\n" +
						"• M.S. Data Science, NJIT\n• Production LLM, RAG and MLOps experience",
					FollowUps: []string{LabelProjects, LabelExperience, LabelContact},
				},
			},
			{
				Name:     "github",
				Triggers: []string{"github", "code", "repository", "repo", "open source"},
				Response: Response{
					Body: "💻 **GitHub & Open Source:**\n\n" +
						"**GitHub Profile:** github.com/saitejchowdary\n\n" +
						"You'll find his machine learning experiments, data pipelines and the source of this portfolio there.",
					FollowUps: []string{LabelProjects, LabelSkillsTech, LabelContact, "Resume"},
				},
			},
		},
		Fallbacks: []ContextFallback{
			{
				Name:           "skills",
				WindowTriggers: []string{"skill", "tech", "programming"},
				Response: Response{
					Body:      "Based on our conversation about skills, would you like to know more about Saitej's specific project implementations using these technologies? Or perhaps his experience level with particular frameworks?",
					FollowUps: []string{LabelProjects, LabelExperience, "Contact", LabelGitHub},
				},
			},
			{
				Name:           "experience",
				WindowTriggers: []string{"experience", "work", "job"},
				Response: Response{
					Body:      "Since you're interested in Saitej's experience, would you like to dive deeper into any specific role or learn about the technologies he used in those positions?",
					FollowUps: []string{"Skills", LabelProjects, LabelEducation, "Contact"},
				},
			},
		},
		Default: Response{
			Body: "I'm here to help you learn more about Saitej! Here are some popular topics:\n\n" +
				"• **Skills & Technologies** - GenAI, ML, data engineering and cloud tools\n" +
				"• **Work Experience** - Professional background and achievements\n" +
				"• **Projects** - Portfolio highlights and technical implementations\n" +
				"• **Education** - Academic background\n" +
				"• **Contact Info** - How to reach out and connect\n\n" +
				"What interests you most? 🤔",
			FollowUps: []string{LabelSkillsTech, LabelExperience, LabelProjects, LabelContact},
		},
		Apology: builtinApology,
	}
}
